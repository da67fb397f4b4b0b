package probe

import (
	"strings"

	"github.com/anychat/anychat/errors"
)

// Kind identifies the wire protocol spoken by a remote endpoint. The set is
// closed: every constant below has a matching transport, and strings from
// hints or flags go through ParseKind before they become a Kind.
type Kind string

const (
	// KindOpenAI is the OpenAI chat-completions REST shape, also served by
	// LM Studio, vLLM and most local inference gateways.
	KindOpenAI Kind = "openai"
	// KindAnthropic is the Anthropic messages REST shape.
	KindAnthropic Kind = "anthropic"
	// KindOllama is the Ollama /api/chat REST shape.
	KindOllama Kind = "ollama"
	// KindGemini talks to the Google Gemini API through its SDK.
	KindGemini Kind = "gemini"
	// KindBedrock invokes Anthropic models hosted on AWS Bedrock.
	KindBedrock Kind = "bedrock"
	// KindMCP speaks to a Model Context Protocol server started as a local
	// command and exposing a chat-like tool.
	KindMCP Kind = "mcp"
	// KindJSONAPI is an unidentified JSON POST endpoint; payload and reply
	// field names are guessed from common conventions.
	KindJSONAPI Kind = "json_api"
	// KindWebSocket is a raw or JSON-enveloped WebSocket round trip.
	KindWebSocket Kind = "websocket"
	// KindRPC is a call-by-name HTTP procedure endpoint in the style of
	// Gradio demo apps; the procedure name is guessed from a candidate list.
	KindRPC Kind = "rpc"
	// KindSessionStream is the composite protocol that creates a server-side
	// session over REST and streams each exchange over a run-scoped WebSocket.
	KindSessionStream Kind = "session_stream"
	// KindWebUI means no programmatic API was found; a browser drives the
	// rendered page instead.
	KindWebUI Kind = "web_ui"
	// KindUnknown is only ever carried by failed detection results.
	KindUnknown Kind = "unknown"
)

// kinds lists every connectable Kind in the order shown to users.
var kinds = []Kind{
	KindOpenAI,
	KindAnthropic,
	KindOllama,
	KindGemini,
	KindBedrock,
	KindMCP,
	KindJSONAPI,
	KindWebSocket,
	KindRPC,
	KindSessionStream,
	KindWebUI,
}

// aliases maps type names from earlier deployments onto current kinds.
var aliases = map[string]Kind{
	"openai_api":         KindOpenAI,
	"lmstudio":           KindOpenAI,
	"anthropic_api":      KindAnthropic,
	"ollama_api":         KindOllama,
	"generic_api":        KindJSONAPI,
	"generic":            KindJSONAPI,
	"gradio":             KindRPC,
	"rest_websocket_api": KindSessionStream,
	"browser":            KindWebUI,
}

func (k Kind) String() string { return string(k) }

// Browser reports whether this kind is served by the browser driver rather
// than a network adapter.
func (k Kind) Browser() bool { return k == KindWebUI }

// ParseKind validates a kind name supplied through hints or flags.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if string(k) == name {
			return k, nil
		}
	}
	if k, ok := aliases[name]; ok {
		return k, nil
	}
	return KindUnknown, errors.New("unknown agent type %q (valid types: %s)", s, KindNames())
}

// KindNames returns the valid kind names as a comma separated list.
func KindNames() string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
