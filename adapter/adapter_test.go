package adapter

import (
	"context"
	"testing"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/rs/zerolog"
)

func TestNewRejectsBrowserKind(t *testing.T) {
	_, err := New(context.Background(), probe.KindWebUI, probe.Config{}, zerolog.Nop())
	if err == nil {
		t.Error("Expected error for web_ui kind")
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(context.Background(), probe.KindUnknown, probe.Config{}, zerolog.Nop())
	if err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestNewOpenAIOffline(t *testing.T) {
	// Construction must not touch the network
	a, err := New(context.Background(), probe.KindOpenAI, probe.Config{
		Endpoint: "http://localhost:1234/v1/chat/completions",
		Model:    "test-model",
		APIKey:   "sk-test",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("Expected an adapter")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Unexpected close error: %v", err)
	}
}

func TestNewAnthropicNeedsKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(context.Background(), probe.KindAnthropic, probe.Config{
		Endpoint: "http://localhost:8000/v1/messages",
		Model:    "test-model",
	}, zerolog.Nop())
	if err == nil {
		t.Error("Expected error without an API key")
	}
}

func TestNewMCPNeedsCommand(t *testing.T) {
	_, err := New(context.Background(), probe.KindMCP, probe.Config{}, zerolog.Nop())
	if err == nil {
		t.Error("Expected error without a server command")
	}
}

func TestTransportError(t *testing.T) {
	inner := errors.New("connection refused")
	err := transportErr("websocket dial", inner)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatal("Expected errors.As to match TransportError")
	}
	if te.Op != "websocket dial" {
		t.Errorf("Expected op 'websocket dial', got %q", te.Op)
	}
	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to be found by errors.Is")
	}
}

func TestBaseURLOf(t *testing.T) {
	cases := []struct {
		endpoint string
		opPaths  []string
		want     string
	}{
		{"http://localhost:1234/v1/chat/completions", []string{"/chat/completions"}, "http://localhost:1234/v1/"},
		{"http://localhost:8000/v1/messages", []string{"/v1/messages", "/messages"}, "http://localhost:8000/"},
		{"http://localhost:8000/proxy/messages", []string{"/v1/messages", "/messages"}, "http://localhost:8000/proxy/"},
		{"http://localhost:9000", []string{"/chat/completions"}, "http://localhost:9000/"},
		{"http://localhost:9000/", []string{"/chat/completions"}, "http://localhost:9000/"},
	}
	for _, tc := range cases {
		got := baseURLOf(tc.endpoint, tc.opPaths...)
		if got != tc.want {
			t.Errorf("baseURLOf(%q): expected %q, got %q", tc.endpoint, tc.want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected passthrough, got %q", got)
	}
	if got := truncate("0123456789abcdef", 10); got != "0123456789..." {
		t.Errorf("Expected truncation, got %q", got)
	}
}
