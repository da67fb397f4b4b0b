package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Local backends can spend minutes loading a model before the first token,
// so ollama gets a longer default than the other HTTP adapters.
const ollamaTimeout = 300 * time.Second

// ollamaAdapter speaks the native Ollama chat API with streaming disabled.
type ollamaAdapter struct {
	client *http.Client
	cfg    probe.Config
	logger zerolog.Logger
}

func newOllama(cfg probe.Config, logger zerolog.Logger) *ollamaAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = ollamaTimeout
	}
	return &ollamaAdapter{client: httpClient(timeout), cfg: cfg, logger: logger}
}

func (a *ollamaAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	msgs := make([]map[string]string, 0, len(history)+2)
	if a.cfg.SystemPrompt != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": a.cfg.SystemPrompt})
	}
	for _, m := range history {
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}
	msgs = append(msgs, map[string]string{"role": session.RoleUser, "content": message})

	body, err := json.Marshal(map[string]interface{}{
		"model":    a.cfg.Model,
		"messages": msgs,
		"stream":   false,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode ollama request")
	}

	a.logger.Debug().Str("model", a.cfg.Model).Int("history", len(history)).Msg("sending chat request")
	status, respBody, err := postJSON(ctx, a.client, a.cfg.Endpoint, body, a.cfg.Headers, a.cfg.APIKey)
	if err != nil {
		return "", transportErr("ollama chat", err)
	}
	if status < 200 || status >= 300 {
		return "", transportErr("ollama chat", errors.New("HTTP %d: %s", status, truncate(string(respBody), 200)))
	}

	if content := gjson.GetBytes(respBody, "message.content"); content.Exists() {
		return content.String(), nil
	}
	return strings.TrimSpace(string(respBody)), nil
}

func (a *ollamaAdapter) Close() error { return nil }
