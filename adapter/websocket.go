package adapter

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// wsAdapter exchanges one request/response pair per Send over a persistent
// WebSocket. Messages travel inside a single-key JSON envelope unless the
// endpoint is configured for plain text frames.
type wsAdapter struct {
	cfg    probe.Config
	logger zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func newWebSocket(ctx context.Context, cfg probe.Config, logger zerolog.Logger) *wsAdapter {
	a := &wsAdapter{cfg: cfg, logger: logger}
	// Some servers only accept upgrades once warmed up, so a failed dial
	// here is not fatal; Send redials and reports the real error.
	if err := a.dial(ctx); err != nil {
		logger.Warn().Err(err).Str("endpoint", cfg.Endpoint).Msg("initial dial failed, will retry on send")
	}
	return a
}

func (a *wsAdapter) dial(ctx context.Context) error {
	header := http.Header{}
	for k, v := range a.cfg.Headers {
		header.Set(k, v)
	}
	if a.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.cfg.Endpoint, header)
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}

func (a *wsAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		if err := a.dial(ctx); err != nil {
			return "", transportErr("websocket dial", err)
		}
	}

	payload := []byte(message)
	if a.cfg.MessageFormat != "text" {
		encoded, err := sjson.SetBytes([]byte(`{}`), a.sendKey(), message)
		if err != nil {
			return "", errors.Wrapf(err, "failed to encode websocket message")
		}
		payload = encoded
	}

	deadline := time.Now().Add(a.timeout())
	if t, ok := ctx.Deadline(); ok && t.Before(deadline) {
		deadline = t
	}

	if err := a.conn.SetWriteDeadline(deadline); err != nil {
		a.drop()
		return "", transportErr("websocket write", err)
	}
	if err := a.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		a.drop()
		return "", transportErr("websocket write", err)
	}

	if err := a.conn.SetReadDeadline(deadline); err != nil {
		a.drop()
		return "", transportErr("websocket read", err)
	}
	_, data, err := a.conn.ReadMessage()
	if err != nil {
		a.drop()
		return "", transportErr("websocket read", err)
	}
	return a.decode(data), nil
}

// decode unwraps the response envelope: the configured receive key first,
// then common fallbacks, then the raw frame.
func (a *wsAdapter) decode(data []byte) string {
	doc := gjson.ParseBytes(data)
	if doc.IsObject() {
		if v := doc.Get(a.receiveKey()); v.Exists() {
			return v.String()
		}
		for _, k := range []string{"message", "response", "text", "content"} {
			if v := doc.Get(k); v.Exists() {
				return v.String()
			}
		}
	}
	return string(data)
}

func (a *wsAdapter) sendKey() string {
	if a.cfg.SendKey != "" {
		return a.cfg.SendKey
	}
	return "message"
}

func (a *wsAdapter) receiveKey() string {
	if a.cfg.ReceiveKey != "" {
		return a.cfg.ReceiveKey
	}
	return "response"
}

func (a *wsAdapter) timeout() time.Duration {
	if a.cfg.Timeout > 0 {
		return a.cfg.Timeout
	}
	return defaultTimeout
}

func (a *wsAdapter) drop() {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

func (a *wsAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}
