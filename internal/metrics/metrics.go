// Package metrics keeps in-process Prometheus instruments for the
// fingerprinting pipeline. Nothing is served over the network; the CLI can
// dump the registry to a textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/himanishpuri/WhistleKey/internal/model"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whistlekey_frames_total",
			Help: "Total number of audio frames analysed, by whether a peak was found",
		},
		[]string{"result"},
	)

	verificationPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whistlekey_verification_passes_total",
			Help: "Total number of enrollment verification passes, by outcome",
		},
		[]string{"result"},
	)

	matchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whistlekey_match_attempts_total",
			Help: "Total number of runtime match attempts, by outcome",
		},
		[]string{"result"},
	)

	acceptanceThreshold = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whistlekey_acceptance_threshold",
			Help: "Expected error a candidate must stay below to match",
		},
	)

	sequenceDistance = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whistlekey_sequence_distance",
			Help:    "Distance between captured sequences and the key",
			Buckets: []float64{0, 50, 100, 250, 500, 1000, 2000, 3000, 5000, 10000},
		},
		[]string{"phase"},
	)
)

const (
	resultPeak     = "peak"
	resultNone     = "none"
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultMatch    = "match"
	resultNoMatch  = "no_match"
)

// RecordFrame counts one extracted frame.
func RecordFrame(sym model.Symbol) {
	if sym.IsPeak() {
		framesTotal.WithLabelValues(resultPeak).Inc()
		return
	}
	framesTotal.WithLabelValues(resultNone).Inc()
}

// Frames returns how many frames have been counted with and without a peak.
func Frames() (peak, none float64) {
	return counterValue(framesTotal.WithLabelValues(resultPeak)),
		counterValue(framesTotal.WithLabelValues(resultNone))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// RecordAttempt counts a scored sequence and observes its distance.
func RecordAttempt(a model.Attempt) {
	sequenceDistance.WithLabelValues(string(a.Phase)).Observe(float64(a.Distance))

	switch a.Phase {
	case model.PhaseVerify:
		if a.Accepted {
			verificationPassesTotal.WithLabelValues(resultAccepted).Inc()
		} else {
			verificationPassesTotal.WithLabelValues(resultRejected).Inc()
		}
	case model.PhaseMatch:
		if a.Accepted {
			matchAttemptsTotal.WithLabelValues(resultMatch).Inc()
		} else {
			matchAttemptsTotal.WithLabelValues(resultNoMatch).Inc()
		}
	}
}

// SetThreshold publishes the trained acceptance threshold.
func SetThreshold(expectedError int) {
	acceptanceThreshold.Set(float64(expectedError))
}

// WriteTextfile dumps the default registry in the text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
