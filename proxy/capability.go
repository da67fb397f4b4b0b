package proxy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/anychat/anychat/probe"
)

// Capabilities describes what this host can actually drive: browser mode
// needs a Chromium install, the hosted-model kinds need credentials. They
// are checked before a connection mutates any state so a refusal leaves
// the proxy untouched.
type Capabilities struct {
	Browser     bool
	BrowserPath string

	OpenAIKey      bool
	AnthropicKey   bool
	GeminiKey      bool
	AWSCredentials bool
}

// DetectCapabilities inspects the host environment.
func DetectCapabilities() Capabilities {
	path, ok := launcher.LookPath()
	return Capabilities{
		Browser:        ok,
		BrowserPath:    path,
		OpenAIKey:      os.Getenv("OPENAI_API_KEY") != "",
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY") != "",
		GeminiKey:      os.Getenv("GEMINI_API_KEY") != "",
		AWSCredentials: hasAWSCredentials(),
	}
}

func hasAWSCredentials() bool {
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" || os.Getenv("AWS_PROFILE") != "" {
		return true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(home, ".aws", "credentials")); err == nil {
		return true
	}
	return false
}

// CapabilityError reports that the host is missing something an endpoint
// kind cannot work without.
type CapabilityError struct {
	Kind    probe.Kind
	Missing string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s endpoint: %s", e.Kind, e.Missing)
}

// check refuses kinds the host cannot serve. An API key given explicitly
// through hints or config always satisfies the credential checks.
func (c Capabilities) check(kind probe.Kind, cfg probe.Config) error {
	switch kind {
	case probe.KindWebUI:
		if !c.Browser {
			return &CapabilityError{Kind: kind, Missing: "no Chrome or Chromium install found"}
		}
	case probe.KindMCP:
		if len(cfg.Command) == 0 {
			return &CapabilityError{Kind: kind, Missing: "no server command to launch (set one via hints or config)"}
		}
	case probe.KindAnthropic:
		if cfg.APIKey == "" && !c.AnthropicKey {
			return &CapabilityError{Kind: kind, Missing: "no API key (flag, config or ANTHROPIC_API_KEY)"}
		}
	case probe.KindGemini:
		if cfg.APIKey == "" && !c.GeminiKey {
			return &CapabilityError{Kind: kind, Missing: "no API key (flag, config or GEMINI_API_KEY)"}
		}
	case probe.KindBedrock:
		if !c.AWSCredentials {
			return &CapabilityError{Kind: kind, Missing: "no AWS credentials in the environment"}
		}
	}
	return nil
}
