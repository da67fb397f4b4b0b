package adapter

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/rs/zerolog"
)

type anthropicAdapter struct {
	client *anthropic.Client
	cfg    probe.Config
	logger zerolog.Logger
}

func newAnthropic(cfg probe.Config, logger zerolog.Logger) (*anthropicAdapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("anthropic endpoints need an API key (flag, config or ANTHROPIC_API_KEY)")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURLOf(cfg.Endpoint, "/v1/messages", "/messages")),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := anthropic.NewClient(opts...)
	return &anthropicAdapter{client: &client, cfg: cfg, logger: logger}, nil
}

func (a *anthropicAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case session.RoleAssistant:
			msgs = append(msgs, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: m.Content},
				}},
			})
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	maxTokens := int64(a.cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if a.cfg.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.cfg.SystemPrompt}}
	}

	a.logger.Debug().Str("model", a.cfg.Model).Int("history", len(history)).Msg("sending messages request")
	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", transportErr("anthropic messages", err)
	}

	var out string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += tb.Text
		}
	}
	return out, nil
}

func (a *anthropicAdapter) Close() error { return nil }
