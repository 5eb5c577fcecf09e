package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoggerLevels(t *testing.T) {
	newServer := func(debug bool) func() (enabler, error) {
		return func() (enabler, error) {
			l, err := NewLogger(debug)
			if err != nil {
				return nil, err
			}
			return l.Core(), nil
		}
	}
	newCLI := func(debug bool) func() (enabler, error) {
		return func() (enabler, error) {
			l, err := NewCLILogger(debug)
			if err != nil {
				return nil, err
			}
			return l.Core(), nil
		}
	}
	tests := []struct {
		name   string
		build  func() (enabler, error)
		lowest zapcore.Level
	}{
		{"server debug", newServer(true), zapcore.DebugLevel},
		{"server production", newServer(false), zapcore.InfoLevel},
		{"cli debug", newCLI(true), zapcore.DebugLevel},
		{"cli quiet", newCLI(false), zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, err := tt.build()
			if err != nil {
				t.Fatal(err)
			}
			if !core.Enabled(tt.lowest) {
				t.Errorf("%s should be enabled", tt.lowest)
			}
			if tt.lowest > zapcore.DebugLevel && core.Enabled(tt.lowest-1) {
				t.Errorf("%s should be disabled", tt.lowest-1)
			}
		})
	}
}

type enabler interface {
	Enabled(zapcore.Level) bool
}
