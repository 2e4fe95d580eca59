package logger

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zapcore.Level
		wantOK bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"info", zapcore.InfoLevel, true},
		{"warn", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseLevel(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := wrap(zap.New(core)).With(String("session_id", "s1"))

	log.Warn("identification failed",
		Duration("took", time.Second),
		Error(errors.New("boom")))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["session_id"] != "s1" {
		t.Errorf("session_id = %v", ctx["session_id"])
	}
	if ctx["error"] != "boom" {
		t.Errorf("error = %v", ctx["error"])
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v", entries[0].Level)
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("nothing")
	log.Errorf("nothing %d", 1)
	if err := log.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}
