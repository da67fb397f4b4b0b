package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func TestOllamaSend(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"llama2","message":{"role":"assistant","content":"local reply"},"done":true}`)
	}))
	defer srv.Close()

	a := newOllama(probe.Config{
		Endpoint:     srv.URL + "/api/chat",
		Model:        "llama2",
		SystemPrompt: "be helpful",
	}, zerolog.Nop())
	defer a.Close()

	history := []session.Message{{Role: session.RoleUser, Content: "first"}}
	reply, err := a.Send(context.Background(), "second", history)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "local reply" {
		t.Errorf("Expected 'local reply', got %q", reply)
	}

	doc := gjson.ParseBytes(gotBody)
	if doc.Get("model").String() != "llama2" {
		t.Errorf("Expected model llama2, got %q", doc.Get("model").String())
	}
	if doc.Get("stream").Bool() {
		t.Error("Expected streaming disabled")
	}
	msgs := doc.Get("messages").Array()
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages (system + history + new), got %d", len(msgs))
	}
	if msgs[0].Get("role").String() != "system" {
		t.Errorf("Expected system message first, got %q", msgs[0].Get("role").String())
	}
	if msgs[2].Get("content").String() != "second" {
		t.Errorf("Expected new message last, got %q", msgs[2].Get("content").String())
	}
}

func TestOllamaRawFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "  bare text answer\n")
	}))
	defer srv.Close()

	a := newOllama(probe.Config{Endpoint: srv.URL + "/api/chat", Model: "llama2"}, zerolog.Nop())
	reply, err := a.Send(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "bare text answer" {
		t.Errorf("Expected trimmed raw body, got %q", reply)
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	a := newOllama(probe.Config{Endpoint: srv.URL + "/api/chat", Model: "nope"}, zerolog.Nop())
	_, err := a.Send(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 404")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Errorf("Expected TransportError, got %T", err)
	}
}
