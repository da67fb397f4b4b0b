package adapter

import (
	"context"
	"os"

	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"
)

// openAIAdapter speaks the OpenAI chat completions dialect, which is also
// the lingua franca of LM Studio, vLLM, LocalAI and most self-hosted
// gateways.
type openAIAdapter struct {
	client *openai.Client
	cfg    probe.Config
	logger zerolog.Logger
}

func newOpenAI(cfg probe.Config, logger zerolog.Logger) (*openAIAdapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		// Local gateways ignore the key but the SDK requires one.
		apiKey = "not-needed"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURLOf(cfg.Endpoint, "/chat/completions", "/completions")),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	c := openai.NewClient(opts...)
	// The &c is required, the SDK returns a value
	return &openAIAdapter{client: &c, cfg: cfg, logger: logger}, nil
}

func (a *openAIAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if a.cfg.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(a.cfg.SystemPrompt))
	}
	for _, m := range history {
		switch m.Role {
		case session.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(message))

	a.logger.Debug().Str("model", a.cfg.Model).Int("history", len(history)).Msg("sending chat completion")
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.cfg.Model),
		Messages: msgs,
	})
	if err != nil {
		return "", transportErr("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *openAIAdapter) Close() error { return nil }
