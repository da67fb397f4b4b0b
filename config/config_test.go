package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHintsForHostProfile(t *testing.T) {
	headless := false
	cfg := &Config{
		Model: "default-model",
		Hosts: []HostProfile{
			{
				Hosts:          []string{"*.internal.example.com", "localhost:*"},
				Type:           "openai",
				APIKey:         "sk-internal",
				TimeoutSeconds: 30,
				Headless:       &headless,
			},
			{
				Hosts: []string{"hub.example.com/chat/**"},
				Type:  "session_stream",
			},
		},
	}

	h := cfg.HintsFor("https://llm.internal.example.com/v1")
	if h.Type != "openai" {
		t.Errorf("Expected type openai, got %q", h.Type)
	}
	if h.APIKey != "sk-internal" {
		t.Errorf("Expected profile API key, got %q", h.APIKey)
	}
	if h.Model != "default-model" {
		t.Errorf("Expected global model to survive, got %q", h.Model)
	}
	if h.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", h.Timeout)
	}
	if h.Headless == nil || *h.Headless {
		t.Error("Expected headless=false from profile")
	}

	// Port wildcard
	h = cfg.HintsFor("http://localhost:8082")
	if h.Type != "openai" {
		t.Errorf("Expected localhost:* to match, got type %q", h.Type)
	}

	// Path glob
	h = cfg.HintsFor("https://hub.example.com/chat/team1")
	if h.Type != "session_stream" {
		t.Errorf("Expected path glob to match, got type %q", h.Type)
	}
	h = cfg.HintsFor("https://hub.example.com/docs")
	if h.Type != "" {
		t.Errorf("Expected no match outside the glob, got type %q", h.Type)
	}

	// No profile still yields usable hints with the global defaults
	h = cfg.HintsFor("https://other.example.org")
	if h == nil {
		t.Fatal("Expected non-nil hints")
	}
	if h.Type != "" {
		t.Errorf("Expected no forced type, got %q", h.Type)
	}
	if h.Model != "default-model" {
		t.Errorf("Expected global model, got %q", h.Model)
	}
}

func TestLoadFromFileMerge(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.yaml")
	projectPath := filepath.Join(dir, "project.yaml")

	userYAML := `model: base-model
system_prompt: be brief
hosts:
  - hosts: ["*.corp.example"]
    type: anthropic
`
	projectYAML := `model: project-model
`
	if err := os.WriteFile(userPath, []byte(userYAML), 0o644); err != nil {
		t.Fatalf("Failed to write user config: %v", err)
	}
	if err := os.WriteFile(projectPath, []byte(projectYAML), 0o644); err != nil {
		t.Fatalf("Failed to write project config: %v", err)
	}

	cfg := &Config{}
	if err := loadFromFile(userPath, cfg); err != nil {
		t.Fatalf("Unexpected error loading user config: %v", err)
	}
	if err := loadFromFile(projectPath, cfg); err != nil {
		t.Fatalf("Unexpected error loading project config: %v", err)
	}

	if cfg.Model != "project-model" {
		t.Errorf("Expected project model to win, got %q", cfg.Model)
	}
	if cfg.SystemPrompt != "be brief" {
		t.Errorf("Expected user system prompt to survive, got %q", cfg.SystemPrompt)
	}
	if len(cfg.Hosts) != 1 || cfg.Hosts[0].Type != "anthropic" {
		t.Errorf("Expected user hosts to survive, got %+v", cfg.Hosts)
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badPath, []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := loadFromFile(badPath, &Config{}); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
