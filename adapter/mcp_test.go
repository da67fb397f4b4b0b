package adapter

import (
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestPickChatTool(t *testing.T) {
	tools := []*mcpsdk.Tool{
		{Name: "file_read"},
		{Name: "prompt"},
		{Name: "Chat"},
	}
	// "chat" outranks "prompt" regardless of listing order or case
	if got := pickChatTool(tools); got.Name != "Chat" {
		t.Errorf("Expected 'Chat', got %q", got.Name)
	}

	tools = []*mcpsdk.Tool{{Name: "alpha"}, {Name: "beta"}}
	if got := pickChatTool(tools); got.Name != "alpha" {
		t.Errorf("Expected first tool as fallback, got %q", got.Name)
	}
}

func TestArgKeyFromSchema(t *testing.T) {
	// Conventional property name wins
	key := argKeyFromSchema([]byte(`{"type":"object","properties":{"verbosity":{"type":"integer"},"prompt":{"type":"string"}}}`))
	if key != "prompt" {
		t.Errorf("Expected 'prompt', got %q", key)
	}

	// Otherwise the first declared property
	key = argKeyFromSchema([]byte(`{"type":"object","properties":{"zeta":{"type":"string"},"alpha":{"type":"string"}}}`))
	if key != "zeta" {
		t.Errorf("Expected first property 'zeta', got %q", key)
	}

	// Schemas without properties fall back to "message"
	if key = argKeyFromSchema([]byte(`{"type":"object"}`)); key != "message" {
		t.Errorf("Expected 'message', got %q", key)
	}
	if key = argKeyFromSchema([]byte(`null`)); key != "message" {
		t.Errorf("Expected 'message' for null schema, got %q", key)
	}
}
