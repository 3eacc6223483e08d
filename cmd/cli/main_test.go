package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/himanishpuri/WhistleKey/internal/fingerprint"
	"github.com/himanishpuri/WhistleKey/internal/service"
)

func TestExitStatus(t *testing.T) {
	untrainedEOF := fmt.Errorf("training failed: waiting for melody: %w", io.EOF)
	listeningEOF := fmt.Errorf("capturing frame 3/200: %w", io.EOF)

	tests := []struct {
		name     string
		err      error
		trained  bool
		expected int
	}{
		{"recording ends while listening", listeningEOF, true, 0},
		{"recording ends during training", untrainedEOF, false, 1},
		{"interrupted during training", fmt.Errorf("training failed: %w", context.Canceled), false, 0},
		{"interrupted while listening", context.Canceled, true, 0},
		{"training abandoned", fmt.Errorf("training failed: %w", service.ErrTrainingAbandoned), false, 1},
		{"onset timeout", fmt.Errorf("training failed: %w", fingerprint.ErrOnsetTimeout), false, 1},
		{"device failure", errors.New("input device lost"), true, 1},
		{"no error", nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status := exitStatus(tt.err, tt.trained)
			if code != tt.expected {
				t.Errorf("exitStatus(%v, %v) = %d (%s), expected %d", tt.err, tt.trained, code, status, tt.expected)
			}
			if status == "" {
				t.Error("Expected a status message")
			}
		})
	}
}

func TestExitStatusNamesUntrainedEnd(t *testing.T) {
	_, status := exitStatus(fmt.Errorf("training failed: %w", io.EOF), false)
	if status == "Recording finished" {
		t.Errorf("An untrained session must not be reported as finished")
	}
}

func TestWithStackAddsTrace(t *testing.T) {
	out := withStack(errors.New("input device lost"))

	if !strings.Contains(out, "input device lost") {
		t.Errorf("message missing from %q", out)
	}
	if !strings.Contains(out, "main.go") {
		t.Errorf("expected a stack trace naming main.go, got %q", out)
	}
}
