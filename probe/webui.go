package probe

import (
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// WebUIProfile describes how to drive one hosted chat UI: where to type,
// what to click, and where replies appear. Selector lists are tried in
// order, most specific first.
type WebUIProfile struct {
	Name              string
	Patterns          []string // globs matched against host and host+path
	InputSelectors    []string
	SubmitSelectors   []string
	ResponseSelectors []string
	LoginRequired     bool
	ExtraWait         time.Duration
}

// webUIRegistry holds the hosted UIs this package knows how to drive. The
// table is built once and never mutated; LookupProfile hands out copies.
var webUIRegistry = []WebUIProfile{
	{
		Name:     "Google Gemini",
		Patterns: []string{"gemini.google.com", "bard.google.com"},
		InputSelectors: []string{
			`div[contenteditable="true"]`,
			`rich-textarea textarea`,
			`textarea[aria-label*="prompt"]`,
			`.ql-editor`,
			`textarea`,
		},
		SubmitSelectors: []string{
			`button[aria-label*="Send"]`,
			`button[data-test-id="send-button"]`,
			`button.send-button`,
			`button[type="submit"]`,
		},
		ResponseSelectors: []string{`message-content`, `model-response`, `.response-container`},
		LoginRequired:     true,
		ExtraWait:         3 * time.Second,
	},
	{
		Name:     "ChatGPT",
		Patterns: []string{"chat.openai.com", "chatgpt.com", "*.chatgpt.com"},
		InputSelectors: []string{
			`textarea[data-id="root"]`,
			`#prompt-textarea`,
			`textarea[placeholder*="Message"]`,
		},
		SubmitSelectors: []string{
			`button[data-testid="send-button"]`,
			`button[aria-label="Send prompt"]`,
		},
		ResponseSelectors: []string{`[data-message-author-role="assistant"] .markdown`},
		LoginRequired:     true,
		ExtraWait:         2 * time.Second,
	},
	{
		Name:     "Claude",
		Patterns: []string{"claude.ai", "*.claude.ai"},
		InputSelectors: []string{
			`div[contenteditable="true"]`,
			`textarea[placeholder*="message"]`,
			`.ProseMirror`,
		},
		SubmitSelectors: []string{
			`button[aria-label="Send Message"]`,
			`button[type="submit"]`,
		},
		ResponseSelectors: []string{`[data-is-streaming]`, `.claude-response`, `.assistant-message`},
		LoginRequired:     true,
		ExtraWait:         2 * time.Second,
	},
	{
		Name:     "Poe",
		Patterns: []string{"poe.com", "*.poe.com"},
		InputSelectors: []string{
			`textarea[class*="GrowingTextArea"]`,
			`textarea[placeholder*="message"]`,
		},
		SubmitSelectors:   []string{`button[class*="SendButton"]`},
		ResponseSelectors: []string{`[class*="Message_botMessageBubble"]`},
		LoginRequired:     true,
		ExtraWait:         1500 * time.Millisecond,
	},
	{
		Name:     "HuggingFace Chat",
		Patterns: []string{"huggingface.co/chat", "huggingface.co/chat/**"},
		InputSelectors: []string{
			`textarea[placeholder*="message"]`,
			`textarea[enterkeyhint="send"]`,
		},
		SubmitSelectors:   []string{`button[type="submit"]`},
		ResponseSelectors: []string{`.prose.dark\:prose-invert`, `.prose`},
		LoginRequired:     false,
		ExtraWait:         2 * time.Second,
	},
	{
		Name:     "Perplexity",
		Patterns: []string{"perplexity.ai", "*.perplexity.ai"},
		InputSelectors: []string{
			`textarea[placeholder*="Ask" i]`,
			`textarea`,
		},
		SubmitSelectors: []string{
			`button[aria-label*="Submit" i]`,
			`button[type="submit"]`,
		},
		ResponseSelectors: []string{`[class*="prose"]`, `[class*="answer" i]`},
		LoginRequired:     false,
		ExtraWait:         2 * time.Second,
	},
	{
		Name:     "Microsoft Copilot",
		Patterns: []string{"copilot.microsoft.com", "*.copilot.microsoft.com", "bing.com/chat", "*.bing.com/chat", "*.bing.com/chat/**"},
		InputSelectors: []string{
			`textarea#userInput`,
			`textarea[placeholder*="message" i]`,
			`textarea`,
		},
		SubmitSelectors: []string{
			`button[type="submit"]`,
			`button[aria-label*="Submit" i]`,
		},
		ResponseSelectors: []string{`[class*="response" i]`, `[class*="message" i][class*="ai" i]`},
		LoginRequired:     true,
		ExtraWait:         2 * time.Second,
	},
	{
		Name:     "You.com",
		Patterns: []string{"you.com", "*.you.com"},
		InputSelectors: []string{
			`textarea[data-testid="user-input"]`,
			`textarea`,
		},
		SubmitSelectors:   []string{`button[type="submit"]`},
		ResponseSelectors: []string{`[data-testid*="answer"]`, `[class*="answer" i]`},
		LoginRequired:     true,
		ExtraWait:         2 * time.Second,
	},
	{
		Name:     "Magentic-One UI",
		Patterns: []string{"localhost:8082", "127.0.0.1:8082"},
		InputSelectors: []string{
			`textarea[placeholder*="message" i]`,
			`textarea`,
		},
		SubmitSelectors: []string{
			`button[aria-label="Submit"]`,
			`button[type="submit"]`,
		},
		ResponseSelectors: []string{`.message-bubble.assistant`, `.message-content`, `.assistant-message`},
		LoginRequired:     false,
		ExtraWait:         3 * time.Second,
	},
}

// LookupProfile returns the registry profile matching rawURL, if any.
// Patterns match against the lowercased host alone and against host+path,
// so both "claude.ai" and "huggingface.co/chat/abc" resolve.
func LookupProfile(rawURL string) (WebUIProfile, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return WebUIProfile{}, false
	}
	host := strings.ToLower(u.Host)
	hostPath := host + strings.TrimRight(strings.ToLower(u.Path), "/")
	for _, p := range webUIRegistry {
		for _, pat := range p.Patterns {
			if ok, _ := doublestar.Match(pat, host); ok {
				return p, true
			}
			if ok, _ := doublestar.Match(pat, hostPath); ok {
				return p, true
			}
		}
	}
	return WebUIProfile{}, false
}
