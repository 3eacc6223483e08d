package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	cfg := DefaultConfig()
	cfg.Output = buf
	cfg.Level = level
	cfg.Colorize = false
	cfg.ShowTime = false
	return New(cfg)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Infof("dropped %d", 1)
	log.Warnf("kept %d", 2)
	log.Errorf("kept %d", 3)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("INFO line should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] kept 2") {
		t.Errorf("missing WARN line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] kept 3") {
		t.Errorf("missing ERROR line: %q", out)
	}
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)

	code := -1
	log.exit = func(c int) { code = c }
	log.Fatalf("boom")

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] boom") {
		t.Errorf("missing FATAL line: %q", buf.String())
	}
}

func TestColorizedLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)
	log.SetColorize(true)

	log.Infof("hello")

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escape in colorized output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{" INFO ", INFO, true},
		{"warning", WARN, true},
		{"error", ERROR, true},
		{"fatal", FATAL, true},
		{"loud", INFO, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; expected %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestShowCallerPointsAtCallSite(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, DEBUG)
	log.SetShowCaller(true)

	calls := []struct {
		name string
		emit func()
	}{
		{"Info", func() { log.Info("plain") }},
		{"Infof", func() { log.Infof("formatted %d", 1) }},
		{"Warnf", func() { log.Warnf("formatted %d", 2) }},
		{"Debugf", func() { log.Debugf("formatted %d", 3) }},
	}

	for _, c := range calls {
		t.Run(c.name, func(t *testing.T) {
			buf.Reset()
			c.emit()
			out := buf.String()
			if !strings.Contains(out, "logger_test.go:") {
				t.Errorf("caller should be the test file, got %q", out)
			}
			if strings.Contains(out, " logger.go:") {
				t.Errorf("caller resolved inside the logger, got %q", out)
			}
		})
	}
}

func TestPackageLevelShowCaller(t *testing.T) {
	var buf bytes.Buffer
	log := GetLogger()
	log.SetOutput(&buf)
	log.SetShowCaller(true)
	log.SetColorize(false)
	log.SetLevel(DEBUG)
	defer func() {
		log.SetOutput(os.Stdout)
		log.SetShowCaller(false)
		log.SetLevel(INFO)
	}()

	Infof("from package %s", "helper")

	if out := buf.String(); !strings.Contains(out, "logger_test.go:") {
		t.Errorf("package-level caller should be the test file, got %q", out)
	}
}
