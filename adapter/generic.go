package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// genericSendKeys are all set to the outgoing message at once; an unknown
// server picks out whichever it understands and ignores the rest.
var genericSendKeys = []string{"message", "input", "prompt", "text", "query"}

// genericReplyKeys are tried in order against the response object.
var genericReplyKeys = []string{"response", "output", "text", "content", "message", "result", "answer"}

// genericAdapter posts to JSON endpoints whose request and response shapes
// are unknown, guessing field names on both sides. History is not replayed;
// the remote service is assumed to keep its own state.
type genericAdapter struct {
	client *http.Client
	cfg    probe.Config
	logger zerolog.Logger
}

func newGeneric(cfg probe.Config, logger zerolog.Logger) *genericAdapter {
	return &genericAdapter{client: httpClient(cfg.Timeout), cfg: cfg, logger: logger}
}

func (a *genericAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	payload := make(map[string]interface{}, len(genericSendKeys))
	for _, k := range genericSendKeys {
		payload[k] = message
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode request")
	}

	a.logger.Debug().Str("endpoint", a.cfg.Endpoint).Msg("posting with guessed keys")
	status, respBody, err := postJSON(ctx, a.client, a.cfg.Endpoint, body, a.cfg.Headers, a.cfg.APIKey)
	if err != nil {
		return "", transportErr("json api request", err)
	}
	if status < 200 || status >= 300 {
		return "", transportErr("json api request", errors.New("HTTP %d: %s", status, truncate(string(respBody), 200)))
	}

	doc := gjson.ParseBytes(respBody)
	if doc.IsObject() {
		for _, k := range genericReplyKeys {
			if v := doc.Get(k); v.Exists() && v.Type != gjson.Null {
				return v.String(), nil
			}
		}
	}
	return strings.TrimSpace(string(respBody)), nil
}

func (a *genericAdapter) Close() error { return nil }
