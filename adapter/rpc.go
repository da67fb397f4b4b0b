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

// rpcPrefixes are the route roots Gradio-style apps mount their named
// functions under, newest convention first.
var rpcPrefixes = []string{"/run/", "/api/"}

var defaultCallNames = []string{"predict", "chat", "generate", "submit"}

// rpcAdapter calls Gradio-style apps that expose named functions taking a
// positional data array. The first route that answers is remembered and
// reused for later sends.
type rpcAdapter struct {
	client *http.Client
	cfg    probe.Config
	logger zerolog.Logger
	route  string
}

func newRPC(cfg probe.Config, logger zerolog.Logger) *rpcAdapter {
	return &rpcAdapter{client: httpClient(cfg.Timeout), cfg: cfg, logger: logger}
}

func (a *rpcAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"data": []interface{}{message},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode rpc request")
	}

	var failures []error
	for _, route := range a.routes() {
		status, respBody, err := postJSON(ctx, a.client, route, body, a.cfg.Headers, a.cfg.APIKey)
		if err != nil {
			failures = append(failures, errors.Wrapf(err, "post %s", route))
			continue
		}
		if status != http.StatusOK {
			failures = append(failures, errors.New("HTTP %d from %s", status, route))
			continue
		}
		if a.route == "" {
			a.logger.Debug().Str("route", route).Msg("rpc route answered")
			a.route = route
		}
		if v := gjson.GetBytes(respBody, "data.0"); v.Exists() {
			return v.String(), nil
		}
		return strings.TrimSpace(string(respBody)), nil
	}
	if len(failures) == 0 {
		failures = append(failures, errors.New("no callable rpc route configured"))
	}
	return "", transportErr("rpc call", errors.Join(failures...))
}

// routes returns the remembered route when one answered before, otherwise
// every prefix/name combination in probe order.
func (a *rpcAdapter) routes() []string {
	if a.route != "" {
		return []string{a.route}
	}
	names := a.cfg.CallNames
	if len(names) == 0 {
		names = defaultCallNames
	}
	base := strings.TrimRight(a.cfg.Endpoint, "/")
	routes := make([]string, 0, len(rpcPrefixes)*len(names))
	for _, prefix := range rpcPrefixes {
		for _, name := range names {
			routes = append(routes, base+prefix+name)
		}
	}
	return routes
}

func (a *rpcAdapter) Close() error { return nil }
