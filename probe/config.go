package probe

import (
	"net/url"
	"strings"
	"time"
)

// Config carries the protocol-specific settings an adapter or browser driver
// needs. Detection fills in what it can, defaults cover the rest, and caller
// hints override both. A zero field means "use the transport's default".
type Config struct {
	// Endpoint is the URL traffic is sent to. It may differ from the URL
	// given to Detect when probing discovered a better path.
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
	Headers      map[string]string
	Timeout      time.Duration
	MaxTokens    int

	// WebSocket framing.
	MessageFormat string // "json" or "text"
	SendKey       string
	ReceiveKey    string

	// Composite session+stream protocol.
	SessionEndpoint string
	StreamPattern   string // run-scoped path, e.g. /api/ws/runs/{run_id}
	UserID          string

	// RPC call-by-name candidates, tried in order.
	CallNames []string

	// Command starts a local MCP server, argv style.
	Command []string

	// Bedrock region override.
	Region string

	// Browser mode. Profile is nil when the driver should discover
	// selectors from the live page; the explicit selector fields override
	// whatever the profile or discovery produced.
	Profile          *WebUIProfile
	InputSelector    string
	SubmitSelector   string
	ResponseSelector string
	Headless         *bool
	UserDataDir      string
}

// Hints are caller-supplied overrides for detection and transport setup.
// Every non-zero field wins over detected and defaulted values, and Type
// forces the kind outright, skipping detection.
type Hints struct {
	Type string

	Model        string
	APIKey       string
	SystemPrompt string
	Headers      map[string]string
	Timeout      time.Duration
	MaxTokens    int

	MessageFormat string
	SendKey       string
	ReceiveKey    string

	SessionEndpoint string
	StreamPattern   string
	UserID          string

	CallNames []string
	Command   []string
	Region    string

	InputSelector    string
	SubmitSelector   string
	ResponseSelector string
	Headless         *bool
	UserDataDir      string
}

// apply copies every set hint field over the detected values.
func (c *Config) apply(h *Hints) {
	if h == nil {
		return
	}
	if h.Model != "" {
		c.Model = h.Model
	}
	if h.APIKey != "" {
		c.APIKey = h.APIKey
	}
	if h.SystemPrompt != "" {
		c.SystemPrompt = h.SystemPrompt
	}
	if len(h.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(h.Headers))
		}
		for k, v := range h.Headers {
			c.Headers[k] = v
		}
	}
	if h.Timeout > 0 {
		c.Timeout = h.Timeout
	}
	if h.MaxTokens > 0 {
		c.MaxTokens = h.MaxTokens
	}
	if h.MessageFormat != "" {
		c.MessageFormat = h.MessageFormat
	}
	if h.SendKey != "" {
		c.SendKey = h.SendKey
	}
	if h.ReceiveKey != "" {
		c.ReceiveKey = h.ReceiveKey
	}
	if h.SessionEndpoint != "" {
		c.SessionEndpoint = h.SessionEndpoint
	}
	if h.StreamPattern != "" {
		c.StreamPattern = h.StreamPattern
	}
	if h.UserID != "" {
		c.UserID = h.UserID
	}
	if len(h.CallNames) > 0 {
		c.CallNames = h.CallNames
	}
	if len(h.Command) > 0 {
		c.Command = h.Command
	}
	if h.Region != "" {
		c.Region = h.Region
	}
	if h.InputSelector != "" {
		c.InputSelector = h.InputSelector
	}
	if h.SubmitSelector != "" {
		c.SubmitSelector = h.SubmitSelector
	}
	if h.ResponseSelector != "" {
		c.ResponseSelector = h.ResponseSelector
	}
	if h.Headless != nil {
		c.Headless = h.Headless
	}
	if h.UserDataDir != "" {
		c.UserDataDir = h.UserDataDir
	}
}

// defaultConfig builds the baseline Config for a kind detected at rawURL.
// REST kinds get their canonical chat path when rawURL is a bare host.
func defaultConfig(kind Kind, rawURL string) Config {
	cfg := Config{Endpoint: rawURL, Timeout: 120 * time.Second}

	switch kind {
	case KindOpenAI:
		cfg.Model = "gpt-3.5-turbo"
		cfg.Endpoint = ensurePath(rawURL, "/v1/chat/completions")
	case KindAnthropic:
		cfg.Model = "claude-3-sonnet-20240229"
		cfg.MaxTokens = 4096
		cfg.Endpoint = ensurePath(rawURL, "/v1/messages")
	case KindOllama:
		cfg.Model = "llama2"
		cfg.Timeout = 300 * time.Second
		cfg.Endpoint = ensurePath(rawURL, "/api/chat")
	case KindGemini:
		cfg.Model = "gemini-1.5-flash"
	case KindBedrock:
		cfg.Model = "anthropic.claude-3-sonnet-20240229-v1:0"
		cfg.MaxTokens = 4096
	case KindWebSocket:
		cfg.MessageFormat = "json"
		cfg.SendKey = "message"
		cfg.ReceiveKey = "response"
	case KindRPC:
		cfg.CallNames = []string{"predict", "chat", "generate", "submit"}
	case KindSessionStream:
		cfg.SessionEndpoint = "/api/sessions"
		cfg.StreamPattern = "/api/ws/runs/{run_id}"
		cfg.UserID = "anychat-user"
	case KindMCP, KindJSONAPI, KindWebUI, KindUnknown:
		// Nothing beyond the endpoint and timeout.
	}

	return cfg
}

// ensurePath appends path when rawURL has no meaningful path of its own, so
// "http://localhost:11434" becomes a usable chat endpoint while explicit
// paths are left alone.
func ensurePath(rawURL, path string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = path
		return u.String()
	}
	return rawURL
}

// baseOf strips a URL down to scheme://host.
func baseOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// joinPath glues a path onto a base URL without doubling slashes.
func joinPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
