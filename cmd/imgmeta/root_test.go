package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

func TestNewLogger_Levels(t *testing.T) {
	l, err := newLogger("warn")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}

	l, err = newLogger("nonsense")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("unknown level should fall back to info")
	}

	l, err = newLogger("DEBUG")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled")
	}
}

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = prev })

	if err := logEvent(context.Background(), models.NewStartEvent("b1", 4)); err != nil {
		t.Fatalf("logEvent() error = %v", err)
	}
	if err := logEvent(context.Background(), models.Event{Type: models.EventProcessError, BatchID: "b1", Timestamp: time.Now()}); err != nil {
		t.Fatalf("logEvent() with empty payload error = %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["total"]; got != int64(4) {
		t.Errorf("total = %v, want 4", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "sweep": false, "events": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}
