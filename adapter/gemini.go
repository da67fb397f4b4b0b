package adapter

import (
	"context"
	"os"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

type geminiAdapter struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger zerolog.Logger
}

func newGemini(ctx context.Context, cfg probe.Config, logger zerolog.Logger) (*geminiAdapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("gemini endpoints need an API key (flag, config or GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	model := client.GenerativeModel(cfg.Model)
	if cfg.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(cfg.SystemPrompt)},
		}
	}

	return &geminiAdapter{client: client, model: model, logger: logger}, nil
}

func (a *geminiAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	chat := a.model.StartChat()
	chat.History = make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == session.RoleAssistant {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	a.logger.Debug().Int("history", len(history)).Msg("sending chat message")
	resp, err := chat.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", transportErr("gemini generate", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			out += string(t)
		}
	}
	return out, nil
}

func (a *geminiAdapter) Close() error { return a.client.Close() }
