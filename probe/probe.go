// Package probe infers the wire protocol of a remote chat endpoint from its
// URL shape, a registry of known hosted UIs, and bounded live probing.
// Detection is best effort by contract: Detect never returns an error, it
// returns a Result whose Success flag and Notes explain what was concluded.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	probeTimeout     = 10 * time.Second
	pathProbeTimeout = 5 * time.Second
	maxProbeBody     = 1 << 20
	probeUserAgent   = "anychat-probe/1.0"
)

// Result is the outcome of endpoint detection, produced once per connect.
// Failed detections carry KindUnknown, a zero Config and the failure reason
// in Notes.
type Result struct {
	Success    bool
	Kind       Kind
	Endpoint   string
	Config     Config
	Confidence float64
	Notes      []string
}

// Detector resolves URLs to protocol kinds. The zero value is not usable;
// construct with NewDetector.
type Detector struct {
	client *http.Client
	logger zerolog.Logger
}

// NewDetector returns a Detector probing with its own bounded HTTP client.
func NewDetector(logger zerolog.Logger) *Detector {
	return NewDetectorWithClient(&http.Client{Timeout: probeTimeout}, logger)
}

// NewDetectorWithClient lets callers and tests control the transport used
// for live probes.
func NewDetectorWithClient(client *http.Client, logger zerolog.Logger) *Detector {
	return &Detector{
		client: client,
		logger: logger.With().Str("component", "probe").Logger(),
	}
}

// restPathPatterns maps URL path fragments to typed kinds. Checked in order;
// first containment wins.
var restPathPatterns = []struct {
	kind     Kind
	patterns []string
}{
	{KindOpenAI, []string{"/v1/chat/completions", "/v1/completions", "/chat/completions"}},
	{KindAnthropic, []string{"/v1/messages", "/messages"}},
	{KindOllama, []string{"/api/chat", "/api/generate", "/api/tags"}},
	{KindMCP, []string{"/mcp"}},
}

// frameworkSignatures are markers that identify the app framework serving an
// HTML page. Gradio apps expose a call-by-name API, chainlit streams over a
// conventional socket path, streamlit needs a real browser.
var frameworkSignatures = []struct {
	name    string
	markers []string
}{
	{"gradio", []string{"gradio", "__gradio_mode__", "gr-interface"}},
	{"streamlit", []string{"streamlit", "_stcore", "st-emotion-cache"}},
	{"chainlit", []string{"chainlit"}},
}

// commonPaths are probed in order against the endpoint's base URL when the
// root page gives no direct answer.
var commonPaths = []string{
	"/api/sessions",
	"/api/ws",
	"/v1/chat/completions",
	"/v1/models",
	"/api/chat",
	"/api/generate",
	"/chat",
	"/docs",
	"/openapi.json",
}

var chatIndicatorWords = []string{
	"chat", "message", "send", "input", "conversation",
	"assistant", "bot", "ai", "llm",
}

// Detect infers the protocol kind for rawURL. Resolution order: explicit
// hint, websocket scheme, hosted-UI registry, known REST paths, then live
// probing. The first step yielding a confident match wins and later steps
// are skipped.
func (d *Detector) Detect(ctx context.Context, rawURL string, hints *Hints) Result {
	if hints != nil && hints.Type != "" {
		return d.fromHint(rawURL, hints)
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return failed(rawURL, 0, fmt.Sprintf("unparseable URL %q", rawURL))
	}

	if s := strings.ToLower(u.Scheme); s == "ws" || s == "wss" {
		cfg := defaultConfig(KindWebSocket, rawURL)
		cfg.apply(hints)
		d.logger.Debug().Str("url", rawURL).Msg("websocket scheme detected")
		return Result{
			Success: true, Kind: KindWebSocket, Endpoint: cfg.Endpoint, Config: cfg,
			Confidence: 0.9, Notes: []string{"websocket URL scheme"},
		}
	}

	if profile, ok := LookupProfile(rawURL); ok {
		cfg := defaultConfig(KindWebUI, rawURL)
		cfg.Profile = &profile
		cfg.apply(hints)
		d.logger.Debug().Str("url", rawURL).Str("ui", profile.Name).Msg("known hosted UI")
		return Result{
			Success: true, Kind: KindWebUI, Endpoint: rawURL, Config: cfg, Confidence: 0.95,
			Notes: []string{fmt.Sprintf("known hosted UI: %s (browser automation required)", profile.Name)},
		}
	}

	if kind, pattern, ok := matchRESTPath(u.Path); ok {
		endpoint := canonicalEndpoint(kind, rawURL, pattern)
		cfg := defaultConfig(kind, endpoint)
		cfg.apply(hints)
		return Result{
			Success: true, Kind: kind, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.9,
			Notes: []string{"matched API path pattern " + pattern},
		}
	}

	return d.probeLive(ctx, u, rawURL, hints)
}

func (d *Detector) fromHint(rawURL string, hints *Hints) Result {
	kind, err := ParseKind(hints.Type)
	if err != nil {
		return failed(rawURL, 0, err.Error())
	}
	cfg := defaultConfig(kind, rawURL)
	if kind == KindWebUI {
		if profile, ok := LookupProfile(rawURL); ok {
			cfg.Profile = &profile
		}
	}
	cfg.apply(hints)
	d.logger.Debug().Str("url", rawURL).Str("kind", kind.String()).Msg("kind forced by hint")
	return Result{
		Success: true, Kind: kind, Endpoint: cfg.Endpoint, Config: cfg,
		Confidence: 1.0, Notes: []string{"kind forced by caller hint"},
	}
}

// probeLive issues one bounded GET to the root URL and classifies whatever
// comes back. Servers exposing both a UI and an API resolve in favor of the
// API: common REST paths are probed before the page is scanned for generic
// chat wording.
func (d *Detector) probeLive(ctx context.Context, u *url.URL, rawURL string, hints *Hints) Result {
	status, ctype, body, err := d.fetch(ctx, rawURL)
	if err != nil {
		d.logger.Warn().Str("url", rawURL).Err(err).Msg("probe request failed")
		return failed(rawURL, 0, fmt.Sprintf("failed to reach %s: %v", rawURL, err))
	}
	notes := []string{fmt.Sprintf("GET %s: %d", rawURL, status)}

	if looksJSON(ctype, body) {
		return d.classifyJSON(u, rawURL, body, hints, notes)
	}

	lower := strings.ToLower(string(body))

	if res, ok := d.classifyFramework(u, rawURL, lower, hints, notes); ok {
		return res
	}

	res, updated, ok := d.probeCommonPaths(ctx, u, hints, notes)
	if ok {
		return res
	}
	notes = updated

	if strings.Contains(ctype, "text/html") || strings.Contains(lower, "<html") {
		if found := chatIndicators(lower); len(found) >= 3 {
			cfg := defaultConfig(KindWebUI, rawURL)
			cfg.apply(hints)
			notes = append(notes, "chat indicators in page: "+strings.Join(found, ", "))
			return Result{
				Success: true, Kind: KindWebUI, Endpoint: rawURL, Config: cfg,
				Confidence: 0.6, Notes: notes,
			}
		}
		return failed(rawURL, 0.2, append(notes, "could not identify a chat interface")...)
	}

	return failed(rawURL, 0.1, append(notes, "no known endpoints found")...)
}

func (d *Detector) classifyJSON(u *url.URL, rawURL string, body []byte, hints *Hints, notes []string) Result {
	doc := gjson.ParseBytes(body)

	if doc.Get("openapi").Exists() || doc.Get("swagger").Exists() {
		notes = append(notes, "OpenAPI specification found")
		var chatPath string
		doc.Get("paths").ForEach(func(key, _ gjson.Result) bool {
			p := strings.ToLower(key.String())
			if strings.Contains(p, "chat") || strings.Contains(p, "completion") ||
				strings.Contains(p, "message") || strings.Contains(p, "generate") {
				chatPath = key.String()
				return false
			}
			return true
		})
		if chatPath != "" {
			endpoint := joinPath(baseOf(u), chatPath)
			kind := KindJSONAPI
			if strings.Contains(strings.ToLower(chatPath), "completion") {
				kind = KindOpenAI
			}
			cfg := defaultConfig(kind, endpoint)
			cfg.apply(hints)
			notes = append(notes, "chat endpoint advertised: "+chatPath)
			return Result{Success: true, Kind: kind, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.95, Notes: notes}
		}
		cfg := defaultConfig(KindJSONAPI, rawURL)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindJSONAPI, Endpoint: rawURL, Config: cfg, Confidence: 0.7, Notes: notes}
	}

	if doc.Get("data").IsArray() && doc.Get("data.0.id").Exists() {
		notes = append(notes, "model list response detected")
		dir := path.Dir(u.Path)
		if dir == "." || dir == "/" {
			dir = ""
		}
		endpoint := baseOf(u) + dir + "/chat/completions"
		cfg := defaultConfig(KindOpenAI, endpoint)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindOpenAI, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.8, Notes: notes}
	}

	if doc.Get("models").IsArray() {
		notes = append(notes, "ollama model tags detected")
		cfg := defaultConfig(KindOllama, baseOf(u))
		cfg.apply(hints)
		return Result{Success: true, Kind: KindOllama, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.8, Notes: notes}
	}

	cfg := defaultConfig(KindJSONAPI, rawURL)
	cfg.apply(hints)
	notes = append(notes, "unrecognized JSON shape, will guess payload keys")
	return Result{Success: true, Kind: KindJSONAPI, Endpoint: rawURL, Config: cfg, Confidence: 0.5, Notes: notes}
}

func (d *Detector) classifyFramework(u *url.URL, rawURL string, lowerHTML string, hints *Hints, notes []string) (Result, bool) {
	for _, fw := range frameworkSignatures {
		for _, marker := range fw.markers {
			if !strings.Contains(lowerHTML, marker) {
				continue
			}
			notes = append(notes, fmt.Sprintf("%s signature in page: %q", fw.name, marker))
			switch fw.name {
			case "gradio":
				cfg := defaultConfig(KindRPC, rawURL)
				cfg.apply(hints)
				return Result{Success: true, Kind: KindRPC, Endpoint: rawURL, Config: cfg, Confidence: 0.85, Notes: notes}, true
			case "streamlit":
				cfg := defaultConfig(KindWebUI, rawURL)
				cfg.apply(hints)
				return Result{Success: true, Kind: KindWebUI, Endpoint: rawURL, Config: cfg, Confidence: 0.85, Notes: notes}, true
			case "chainlit":
				endpoint := strings.Replace(strings.TrimRight(rawURL, "/"), "http", "ws", 1) + "/ws"
				cfg := defaultConfig(KindWebSocket, endpoint)
				cfg.apply(hints)
				notes = append(notes, "chainlit streams over "+endpoint)
				return Result{Success: true, Kind: KindWebSocket, Endpoint: endpoint, Config: cfg, Confidence: 0.85, Notes: notes}, true
			}
		}
	}
	return Result{}, false
}

// probeCommonPaths sweeps conventional API paths on the endpoint's base URL.
// A sessions path plus an upgrade-refusing socket path mark the composite
// session+stream protocol; otherwise OpenAI and Ollama paths are recognized
// directly.
func (d *Detector) probeCommonPaths(ctx context.Context, u *url.URL, hints *Hints, notes []string) (Result, []string, bool) {
	base := baseOf(u)
	found := make(map[string]int)
	for _, p := range commonPaths {
		wsLike := strings.Contains(p, "/ws")
		status, ok := d.answers(ctx, joinPath(base, p), wsLike)
		if ok {
			found[p] = status
			notes = append(notes, fmt.Sprintf("endpoint answered: %s (%d)", p, status))
		}
	}

	_, sessionsOK := found["/api/sessions"]
	_, wsOK := found["/api/ws"]
	if sessionsOK && wsOK {
		notes = append(notes, "REST session + WebSocket stream pattern detected")
		cfg := defaultConfig(KindSessionStream, base)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindSessionStream, Endpoint: base, Config: cfg, Confidence: 0.85, Notes: notes}, notes, true
	}

	if _, ok := found["/v1/chat/completions"]; ok {
		cfg := defaultConfig(KindOpenAI, base)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindOpenAI, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.8, Notes: notes}, notes, true
	}
	if _, ok := found["/v1/models"]; ok {
		cfg := defaultConfig(KindOpenAI, base)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindOpenAI, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.8, Notes: notes}, notes, true
	}
	if _, ok := found["/api/chat"]; ok {
		cfg := defaultConfig(KindOllama, base)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindOllama, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.8, Notes: notes}, notes, true
	}
	if _, ok := found["/api/generate"]; ok {
		cfg := defaultConfig(KindOllama, base)
		cfg.apply(hints)
		return Result{Success: true, Kind: KindOllama, Endpoint: cfg.Endpoint, Config: cfg, Confidence: 0.8, Notes: notes}, notes, true
	}

	if _, ok := found["/openapi.json"]; ok {
		if status, _, body, err := d.fetch(ctx, joinPath(base, "/openapi.json")); err == nil && status == http.StatusOK && looksJSON("application/json", body) {
			return d.classifyJSON(u, base, body, hints, notes), notes, true
		}
	}
	if _, ok := found["/docs"]; ok {
		notes = append(notes, "API documentation endpoint present")
	}

	return Result{}, notes, false
}

func (d *Detector) fetch(ctx context.Context, rawURL string) (int, string, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("User-Agent", probeUserAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return resp.StatusCode, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

// answers reports whether a probe URL looks mounted. 200, 405 (POST-only)
// and 422 (validation error) all count; for socket paths the refusals a
// plain GET provokes (400, 403, 426) count too.
func (d *Detector) answers(ctx context.Context, probeURL string, wsLike bool) (int, bool) {
	reqCtx, cancel := context.WithTimeout(ctx, pathProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, probeURL, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("User-Agent", probeUserAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusMethodNotAllowed, http.StatusUnprocessableEntity:
		return resp.StatusCode, true
	case http.StatusBadRequest, http.StatusForbidden, http.StatusUpgradeRequired:
		return resp.StatusCode, wsLike
	}
	return resp.StatusCode, false
}

func matchRESTPath(urlPath string) (Kind, string, bool) {
	lower := strings.ToLower(urlPath)
	for _, entry := range restPathPatterns {
		for _, p := range entry.patterns {
			if strings.Contains(lower, p) {
				return entry.kind, p, true
			}
		}
	}
	return KindUnknown, "", false
}

// canonicalEndpoint rewrites discovery-only paths to the sibling chat path,
// so a URL pointing at /api/tags or /api/generate still gets messages sent
// to /api/chat. URLs already naming a chat path pass through unchanged.
func canonicalEndpoint(kind Kind, rawURL, pattern string) string {
	if kind == KindOllama && (pattern == "/api/tags" || pattern == "/api/generate") {
		return strings.Replace(rawURL, pattern, "/api/chat", 1)
	}
	return rawURL
}

func looksJSON(ctype string, body []byte) bool {
	if strings.Contains(ctype, "application/json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && gjson.ValidBytes(trimmed)
}

func chatIndicators(lowerHTML string) []string {
	var found []string
	for _, w := range chatIndicatorWords {
		if strings.Contains(lowerHTML, w) {
			found = append(found, w)
		}
	}
	return found
}

func failed(endpoint string, confidence float64, notes ...string) Result {
	return Result{
		Success:    false,
		Kind:       KindUnknown,
		Endpoint:   endpoint,
		Confidence: confidence,
		Notes:      notes,
	}
}
