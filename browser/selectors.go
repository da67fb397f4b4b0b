package browser

import "github.com/anychat/anychat/probe"

// Selector guesses for chat pages we have no profile for. Ordered most to
// least specific so precise matches win before the catch-alls.
var genericInputSelectors = []string{
	`textarea[placeholder*="message" i]`,
	`textarea[placeholder*="chat" i]`,
	`textarea[placeholder*="ask" i]`,
	`textarea[placeholder*="type" i]`,
	`div[contenteditable="true"]`,
	`textarea:not([readonly])`,
	`input[type="text"][placeholder*="message" i]`,
}

var genericSubmitSelectors = []string{
	`button[type="submit"]`,
	`button[aria-label*="send" i]`,
	`button[aria-label*="submit" i]`,
	`button[data-testid*="send" i]`,
	`button[title*="send" i]`,
}

var genericResponseSelectors = []string{
	`[data-message-author-role="assistant"]`,
	`[data-role="assistant"]`,
	`.message-bubble.assistant`,
	`[class*="message" i][class*="assistant" i]`,
	`[class*="message" i][class*="bot" i]`,
	`[class*="response" i]`,
	`[class*="answer" i]`,
	`[class*="reply" i]`,
}

// loadingSelectors mark an in-flight generation. Any visible match means
// the page is still producing output.
var loadingSelectors = []string{
	`[data-is-streaming="true"]`,
	`.loading`,
	`.spinner`,
	`.typing`,
	`[aria-busy="true"]`,
	`.animate-pulse`,
	`.animate-spin`,
	`[class*="loading"]`,
	`[class*="typing"]`,
	`[class*="streaming"]`,
}

type selectorSet struct {
	input    []string
	submit   []string
	response []string
}

// resolveSelectors picks the selector lists for a page: the site profile
// where one matched, the generic guesses otherwise, and an explicitly
// configured selector replaces its whole list.
func resolveSelectors(cfg probe.Config) selectorSet {
	s := selectorSet{
		input:    genericInputSelectors,
		submit:   genericSubmitSelectors,
		response: genericResponseSelectors,
	}
	if p := cfg.Profile; p != nil {
		if len(p.InputSelectors) > 0 {
			s.input = p.InputSelectors
		}
		if len(p.SubmitSelectors) > 0 {
			s.submit = p.SubmitSelectors
		}
		if len(p.ResponseSelectors) > 0 {
			s.response = p.ResponseSelectors
		}
	}
	if cfg.InputSelector != "" {
		s.input = []string{cfg.InputSelector}
	}
	if cfg.SubmitSelector != "" {
		s.submit = []string{cfg.SubmitSelector}
	}
	if cfg.ResponseSelector != "" {
		s.response = []string{cfg.ResponseSelector}
	}
	return s
}
