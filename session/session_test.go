package session

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendKeepsOrderAndStamps(t *testing.T) {
	log := New("http://localhost:8080", "openai")

	before := time.Now().UTC()
	log.Append(RoleUser, "first")
	log.Append(RoleAssistant, "second")
	log.Append(RoleUser, "third")
	after := time.Now().UTC()

	if len(log.Turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(log.Turns))
	}
	wantRoles := []string{RoleUser, RoleAssistant, RoleUser}
	wantContent := []string{"first", "second", "third"}
	for i, turn := range log.Turns {
		if turn.Role != wantRoles[i] {
			t.Errorf("turn %d: expected role %s, got %s", i, wantRoles[i], turn.Role)
		}
		if turn.Content != wantContent[i] {
			t.Errorf("turn %d: expected content %s, got %s", i, wantContent[i], turn.Content)
		}
		if turn.Timestamp.Before(before) || turn.Timestamp.After(after) {
			t.Errorf("turn %d: timestamp %v outside the test window", i, turn.Timestamp)
		}
	}
}

func TestClearKeepsMetadata(t *testing.T) {
	log := New("http://localhost:8080", "ollama")
	log.Append(RoleUser, "hi")
	started := log.StartedAt

	log.Clear()

	if len(log.Turns) != 0 {
		t.Errorf("Expected no turns after Clear, got %d", len(log.Turns))
	}
	if log.AgentURL != "http://localhost:8080" {
		t.Errorf("Expected agent URL to survive Clear, got %s", log.AgentURL)
	}
	if log.AgentType != "ollama" {
		t.Errorf("Expected agent type to survive Clear, got %s", log.AgentType)
	}
	if !log.StartedAt.Equal(started) {
		t.Errorf("Expected start time to survive Clear, got %v", log.StartedAt)
	}
}

func TestExportParseRoundTrip(t *testing.T) {
	log := New("ws://localhost:9000/chat", "websocket")
	log.Append(RoleUser, "ping")
	log.Append(RoleAssistant, "pong")

	out, err := log.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(out, `"agent_url"`) || !strings.Contains(out, `"turns"`) {
		t.Errorf("Expected the export to carry metadata and turns, got %s", out)
	}

	parsed, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.AgentURL != log.AgentURL || parsed.AgentType != log.AgentType {
		t.Errorf("Expected metadata to round trip, got %s %s", parsed.AgentURL, parsed.AgentType)
	}
	if len(parsed.Turns) != 2 {
		t.Fatalf("Expected 2 turns to round trip, got %d", len(parsed.Turns))
	}
	if parsed.Turns[0].Content != "ping" || parsed.Turns[1].Content != "pong" {
		t.Errorf("Expected turn order preserved, got %+v", parsed.Turns)
	}
	if !parsed.Turns[0].Timestamp.Equal(log.Turns[0].Timestamp) {
		t.Errorf("Expected timestamps preserved, got %v", parsed.Turns[0].Timestamp)
	}
}

func TestSaveLoad(t *testing.T) {
	log := New("http://localhost:8080", "anthropic")
	log.Append(RoleUser, "hello")

	path := filepath.Join(t.TempDir(), "conversation.json")
	if err := log.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.AgentType != "anthropic" {
		t.Errorf("Expected the saved agent type back, got %s", loaded.AgentType)
	}
	if len(loaded.Turns) != 1 || loaded.Turns[0].Content != "hello" {
		t.Errorf("Expected the saved turn back, got %+v", loaded.Turns)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Error("Expected Parse to reject malformed input")
	}
}
