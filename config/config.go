// Package config loads optional YAML configuration from the user's home
// directory and the current working directory. Configuration supplies the
// same knobs as command line flags plus per-host connection profiles, so
// frequently used endpoints do not need to be described on every run.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const configDir = ".anychat"

// HostProfile carries connection hints for agents whose URL matches one of
// the Hosts globs. Globs are matched against the lowercased host and against
// host/path, so "*.internal.corp" and "hub.corp/chat/**" both work.
type HostProfile struct {
	Hosts            []string          `yaml:"hosts"`
	Type             string            `yaml:"type"`
	Model            string            `yaml:"model"`
	APIKey           string            `yaml:"api_key"`
	SystemPrompt     string            `yaml:"system_prompt"`
	Headers          map[string]string `yaml:"headers"`
	TimeoutSeconds   int               `yaml:"timeout_seconds"`
	MaxTokens        int               `yaml:"max_tokens"`
	MessageFormat    string            `yaml:"message_format"`
	SendKey          string            `yaml:"send_key"`
	ReceiveKey       string            `yaml:"receive_key"`
	SessionEndpoint  string            `yaml:"session_endpoint"`
	StreamPattern    string            `yaml:"stream_pattern"`
	UserID           string            `yaml:"user_id"`
	Region           string            `yaml:"region"`
	Command          []string          `yaml:"command"`
	InputSelector    string            `yaml:"input_selector"`
	SubmitSelector   string            `yaml:"submit_selector"`
	ResponseSelector string            `yaml:"response_selector"`
	Headless         *bool             `yaml:"headless"`
	UserDataDir      string            `yaml:"user_data_dir"`
}

type Config struct {
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	ExportPath   string        `yaml:"export_path"`
	Headless     *bool         `yaml:"headless"`
	UserDataDir  string        `yaml:"user_data_dir"`
	Hosts        []HostProfile `yaml:"hosts"`
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence. Missing
// files are fine; only unreadable or malformed ones are errors.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, configDir, "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, configDir, "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, so the project file
	// replaces user-level values wholesale, including the hosts list.
	return yaml.Unmarshal(data, cfg)
}

// HintsFor assembles detection hints for rawURL: global defaults first, then
// the first matching host profile on top. The result is never nil, so flag
// values can be layered onto it afterwards.
func (c *Config) HintsFor(rawURL string) *probe.Hints {
	h := &probe.Hints{
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		Headless:     c.Headless,
		UserDataDir:  c.UserDataDir,
	}

	p := c.profileFor(rawURL)
	if p == nil {
		return h
	}
	if p.Type != "" {
		h.Type = p.Type
	}
	if p.Model != "" {
		h.Model = p.Model
	}
	if p.APIKey != "" {
		h.APIKey = p.APIKey
	}
	if p.SystemPrompt != "" {
		h.SystemPrompt = p.SystemPrompt
	}
	if len(p.Headers) > 0 {
		h.Headers = p.Headers
	}
	if p.TimeoutSeconds > 0 {
		h.Timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}
	if p.MaxTokens > 0 {
		h.MaxTokens = p.MaxTokens
	}
	if p.MessageFormat != "" {
		h.MessageFormat = p.MessageFormat
	}
	if p.SendKey != "" {
		h.SendKey = p.SendKey
	}
	if p.ReceiveKey != "" {
		h.ReceiveKey = p.ReceiveKey
	}
	if p.SessionEndpoint != "" {
		h.SessionEndpoint = p.SessionEndpoint
	}
	if p.StreamPattern != "" {
		h.StreamPattern = p.StreamPattern
	}
	if p.UserID != "" {
		h.UserID = p.UserID
	}
	if p.Region != "" {
		h.Region = p.Region
	}
	if len(p.Command) > 0 {
		h.Command = p.Command
	}
	if p.InputSelector != "" {
		h.InputSelector = p.InputSelector
	}
	if p.SubmitSelector != "" {
		h.SubmitSelector = p.SubmitSelector
	}
	if p.ResponseSelector != "" {
		h.ResponseSelector = p.ResponseSelector
	}
	if p.Headless != nil {
		h.Headless = p.Headless
	}
	if p.UserDataDir != "" {
		h.UserDataDir = p.UserDataDir
	}
	return h
}

func (c *Config) profileFor(rawURL string) *HostProfile {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Host)
	hostPath := host + strings.TrimRight(strings.ToLower(u.Path), "/")
	for i := range c.Hosts {
		for _, g := range c.Hosts[i].Hosts {
			g = strings.ToLower(g)
			if ok, err := doublestar.Match(g, host); err == nil && ok {
				return &c.Hosts[i]
			}
			if ok, err := doublestar.Match(g, hostPath); err == nil && ok {
				return &c.Hosts[i]
			}
		}
	}
	return nil
}
