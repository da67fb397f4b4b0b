package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/anychat/anychat/probe"
)

func TestNewLoggerLevels(t *testing.T) {
	if got := newLogger(false, false).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("Expected info level by default, got %s", got)
	}
	if got := newLogger(true, false).GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("Expected debug level with -v, got %s", got)
	}
	if got := newLogger(false, true).GetLevel(); got != zerolog.ErrorLevel {
		t.Errorf("Expected error level with -q, got %s", got)
	}
}

func TestRunProbeHintedEndpoint(t *testing.T) {
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	os.Stdout = w
	ok := runProbe(context.Background(), "http://localhost:11434", &probe.Hints{Type: "ollama"}, zerolog.Nop())
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !ok {
		t.Error("Expected a hinted probe to succeed")
	}
	out := buf.String()
	if !strings.Contains(out, "Kind:       ollama") {
		t.Errorf("Expected the resolved kind printed, got:\n%s", out)
	}
	if !strings.Contains(out, "Confidence: 1.00") {
		t.Errorf("Expected full confidence for a hinted kind, got:\n%s", out)
	}
}
