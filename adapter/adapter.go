// Package adapter turns a detected endpoint into a uniform chat client.
// One adapter speaks one protocol: the typed REST dialects (OpenAI,
// Anthropic, Ollama), the vendor SDKs (Gemini, Bedrock), MCP tool servers,
// call-by-name RPC apps, raw WebSockets, the REST-session-plus-stream
// composite, and a key-guessing fallback for unknown JSON APIs.
//
// Adapters are configured once at construction and not reconfigured after.
// Send carries the full prior transcript so stateless protocols can replay
// it; transports with server-side state ignore it.
package adapter

import (
	"context"
	"fmt"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/rs/zerolog"
)

// Adapter is the uniform client for one remote agent.
type Adapter interface {
	Send(ctx context.Context, message string, history []session.Message) (string, error)
	Close() error
}

// TransportError marks failures of the transport itself, as opposed to
// answers that happen to contain error text. Callers match it with
// errors.As.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// New builds the adapter for a detected kind. Browser-driven endpoints have
// no network adapter; the caller routes those to the browser driver instead.
func New(ctx context.Context, kind probe.Kind, cfg probe.Config, logger zerolog.Logger) (Adapter, error) {
	logger = logger.With().Str("component", "adapter").Str("kind", kind.String()).Logger()
	switch kind {
	case probe.KindOpenAI:
		return newOpenAI(cfg, logger)
	case probe.KindAnthropic:
		return newAnthropic(cfg, logger)
	case probe.KindOllama:
		return newOllama(cfg, logger), nil
	case probe.KindGemini:
		return newGemini(ctx, cfg, logger)
	case probe.KindBedrock:
		return newBedrock(ctx, cfg, logger)
	case probe.KindMCP:
		return newMCP(ctx, cfg, logger)
	case probe.KindJSONAPI:
		return newGeneric(cfg, logger), nil
	case probe.KindRPC:
		return newRPC(cfg, logger), nil
	case probe.KindWebSocket:
		return newWebSocket(ctx, cfg, logger), nil
	case probe.KindSessionStream:
		return newSessionStream(ctx, cfg, logger)
	case probe.KindWebUI:
		return nil, errors.New("web_ui endpoints are driven through a browser, not a network adapter")
	default:
		return nil, errors.New("no adapter for endpoint kind %q", kind)
	}
}
