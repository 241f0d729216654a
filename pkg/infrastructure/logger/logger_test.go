package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromZap_WithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(String("component", "test"))

	log.Info("checked", String("domain", "shop.example"), Int("attempts", 3))
	log.Error("failed", Error(errors.New("boom")))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "test" || ctx["domain"] != "shop.example" || ctx["attempts"] != int64(3) {
		t.Errorf("unexpected context %v", ctx)
	}
	if entries[1].ContextMap()["error"] != "boom" {
		t.Errorf("unexpected error field %v", entries[1].ContextMap())
	}
}

func TestNew(t *testing.T) {
	log, err := New(Config{Level: "debug", OutputPaths: []string{t.TempDir() + "/detector.log"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("hello")
	_ = log.Sync()

	NewNop().Info("discarded")
}
