package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Frame types seen on session streams, grouped by how they are handled.
var (
	streamContentTypes = map[string]bool{
		"stream": true, "message": true, "text": true, "response": true, "agent_response": true,
	}
	streamErrorTypes = map[string]bool{
		"error": true, "exception": true,
	}
	streamDoneTypes = map[string]bool{
		"complete": true, "stopped": true, "done": true, "end": true, "finished": true,
	}
	streamQuietTypes = map[string]bool{
		"system": true, "status": true, "ping": true, "pong": true, "heartbeat": true, "metadata": true,
	}
)

// sessionStreamAdapter speaks the composite protocol of agent dashboards
// like Magentic-One: a session is created over REST once, then each message
// runs as a task on a per-send WebSocket that streams frames until a
// completion marker.
type sessionStreamAdapter struct {
	client    *http.Client
	cfg       probe.Config
	logger    zerolog.Logger
	userID    string
	sessionID string
	runID     string
}

func newSessionStream(ctx context.Context, cfg probe.Config, logger zerolog.Logger) (*sessionStreamAdapter, error) {
	userID := cfg.UserID
	if userID == "" {
		userID = "anychat-user"
	}
	a := &sessionStreamAdapter{
		client: httpClient(cfg.Timeout),
		cfg:    cfg,
		logger: logger,
		userID: userID,
	}
	if err := a.createSession(ctx); err != nil {
		return nil, transportErr("session create", err)
	}
	// The run id improves the stream URL but is not required; the generic
	// socket path works without it.
	a.fetchRunID(ctx)
	return a, nil
}

func (a *sessionStreamAdapter) createSession(ctx context.Context) error {
	name := "anychat-" + uuid.NewString()[:8]
	body, err := json.Marshal(map[string]interface{}{
		"id":          0,
		"user_id":     a.userID,
		"name":        name,
		"tags":        []string{},
		"team_config": map[string]interface{}{},
	})
	if err != nil {
		return err
	}

	status, respBody, err := postJSON(ctx, a.client, a.sessionURL(), body, a.cfg.Headers, a.cfg.APIKey)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.New("HTTP %d: %s", status, truncate(string(respBody), 200))
	}

	doc := gjson.ParseBytes(respBody)
	for _, key := range []string{"data.id", "data.session_id", "id", "session_id"} {
		if v := doc.Get(key); v.Exists() {
			a.sessionID = v.String()
			break
		}
	}
	if a.sessionID == "" {
		return errors.New("no session id in response: %s", truncate(string(respBody), 200))
	}
	a.logger.Debug().Str("session_id", a.sessionID).Str("name", name).Msg("session created")
	return nil
}

func (a *sessionStreamAdapter) fetchRunID(ctx context.Context) {
	runsURL := a.sessionURL() + "/" + a.sessionID + "/runs?user_id=" + url.QueryEscape(a.userID)
	status, body, err := getJSON(ctx, a.client, runsURL, a.cfg.Headers, a.cfg.APIKey)
	if err != nil || status != http.StatusOK {
		return
	}
	if v := gjson.GetBytes(body, "data.runs.0.id"); v.Exists() {
		a.runID = v.String()
		a.logger.Debug().Str("run_id", a.runID).Msg("run discovered")
	}
}

func (a *sessionStreamAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	conn, err := a.dialStream(ctx)
	if err != nil {
		return "", transportErr("stream dial", err)
	}
	defer conn.Close()

	start, err := a.startFrame(message)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode start frame")
	}
	if err := conn.WriteMessage(websocket.TextMessage, start); err != nil {
		return "", transportErr("stream write", err)
	}

	return a.collect(ctx, conn)
}

func (a *sessionStreamAdapter) dialStream(ctx context.Context) (*websocket.Conn, error) {
	wsBase := strings.Replace(strings.TrimRight(a.cfg.Endpoint, "/"), "http", "ws", 1)
	pattern := a.cfg.StreamPattern
	if pattern == "" {
		pattern = "/api/ws/runs/{run_id}"
	}

	var candidates []string
	if a.runID != "" || !strings.Contains(pattern, "{run_id}") {
		candidates = append(candidates, wsBase+strings.ReplaceAll(pattern, "{run_id}", a.runID))
	}
	candidates = append(candidates, wsBase+"/api/ws")

	header := http.Header{}
	for k, v := range a.cfg.Headers {
		header.Set(k, v)
	}
	if a.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	var lastErr error
	for _, u := range candidates {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, header)
		if err == nil {
			a.logger.Debug().Str("stream", u).Msg("stream connected")
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (a *sessionStreamAdapter) startFrame(message string) ([]byte, error) {
	model := a.cfg.Model
	if model == "" {
		model = "gpt-4"
	}
	return json.Marshal(map[string]interface{}{
		"type":  "start",
		"task":  message,
		"files": []string{},
		"team_config": map[string]interface{}{
			"agents": []string{},
			"model":  model,
		},
		"settings_config": map[string]interface{}{},
	})
}

// collect reads stream frames until a completion marker, an error frame or
// the idle deadline. A timeout with accumulated fragments returns them as a
// partial answer; a timeout with nothing is a transport error.
func (a *sessionStreamAdapter) collect(ctx context.Context, conn *websocket.Conn) (string, error) {
	idle := a.cfg.Timeout
	if idle <= 0 {
		idle = defaultTimeout
	}

	var parts []string
	for {
		deadline := time.Now().Add(idle)
		if t, ok := ctx.Deadline(); ok && t.Before(deadline) {
			deadline = t
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return strings.Join(parts, ""), nil
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if len(parts) > 0 {
				a.logger.Warn().Err(err).Msg("stream ended early, returning partial answer")
				return strings.Join(parts, ""), nil
			}
			return "", transportErr("stream read", err)
		}

		doc := gjson.ParseBytes(data)
		if !doc.IsObject() {
			parts = append(parts, string(data))
			continue
		}

		ftype := doc.Get("type").String()
		switch {
		case streamQuietTypes[ftype]:
			continue
		case streamErrorTypes[ftype]:
			msg := frameContent(doc)
			if msg == "" {
				msg = doc.Get("error").String()
			}
			if msg == "" {
				msg = "unknown stream error"
			}
			return "", transportErr("stream error", errors.New("%s", msg))
		case streamDoneTypes[ftype]:
			if v := frameContent(doc); v != "" {
				parts = append(parts, v)
			}
			return strings.Join(parts, ""), nil
		case streamContentTypes[ftype]:
			if v := frameContent(doc); v != "" {
				parts = append(parts, v)
			}
		default:
			// Unknown frame type, salvage any text it carries
			if v := frameContent(doc); v != "" {
				parts = append(parts, v)
			}
		}
	}
}

// frameContent pulls the text out of a frame, looking one level into nested
// message objects.
func frameContent(doc gjson.Result) string {
	for _, k := range []string{"content", "text", "message", "result"} {
		v := doc.Get(k)
		if !v.Exists() {
			continue
		}
		if v.IsObject() {
			if inner := v.Get("content"); inner.Exists() {
				return inner.String()
			}
			continue
		}
		if v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

func (a *sessionStreamAdapter) sessionURL() string {
	endpoint := a.cfg.SessionEndpoint
	if endpoint == "" {
		endpoint = "/api/sessions"
	}
	return strings.TrimRight(a.cfg.Endpoint, "/") + endpoint
}

// Close has nothing persistent to tear down; stream sockets live one Send.
func (a *sessionStreamAdapter) Close() error { return nil }
