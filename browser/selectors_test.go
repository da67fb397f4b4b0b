package browser

import (
	"testing"

	"github.com/anychat/anychat/probe"
)

func TestResolveSelectorsGeneric(t *testing.T) {
	s := resolveSelectors(probe.Config{})

	if len(s.input) == 0 || len(s.submit) == 0 || len(s.response) == 0 {
		t.Fatal("Expected generic selector lists to be populated")
	}
	if s.input[0] != `textarea[placeholder*="message" i]` {
		t.Errorf("Expected the most specific input selector first, got %s", s.input[0])
	}
}

func TestResolveSelectorsProfile(t *testing.T) {
	p := &probe.WebUIProfile{
		InputSelectors:  []string{"#composer"},
		SubmitSelectors: []string{"#send"},
	}
	s := resolveSelectors(probe.Config{Profile: p})

	if len(s.input) != 1 || s.input[0] != "#composer" {
		t.Errorf("Expected the profile input selector, got %v", s.input)
	}
	if len(s.submit) != 1 || s.submit[0] != "#send" {
		t.Errorf("Expected the profile submit selector, got %v", s.submit)
	}
	if s.response[0] != genericResponseSelectors[0] {
		t.Errorf("Expected generic response selectors when the profile has none, got %v", s.response)
	}
}

func TestResolveSelectorsExplicitOverride(t *testing.T) {
	cfg := probe.Config{
		Profile:       &probe.WebUIProfile{InputSelectors: []string{"#composer"}},
		InputSelector: "textarea.custom",
	}
	s := resolveSelectors(cfg)

	if len(s.input) != 1 || s.input[0] != "textarea.custom" {
		t.Errorf("Expected the explicit selector to replace the list, got %v", s.input)
	}
}
