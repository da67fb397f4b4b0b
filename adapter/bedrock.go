package adapter

import (
	"context"
	"encoding/json"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// bedrockAdapter invokes Anthropic models hosted on AWS Bedrock. AWS
// credentials come from the standard environment and config chain.
type bedrockAdapter struct {
	client *bedrockruntime.Client
	cfg    probe.Config
	logger zerolog.Logger
}

func newBedrock(ctx context.Context, cfg probe.Config, logger zerolog.Logger) (*bedrockAdapter, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}

	return &bedrockAdapter{
		client: bedrockruntime.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (a *bedrockAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	body, err := bedrockRequestBody(a.cfg, message, history)
	if err != nil {
		return "", errors.Wrapf(err, "failed to build Bedrock request")
	}

	a.logger.Debug().Str("model", a.cfg.Model).Int("history", len(history)).Msg("invoking model")
	resp, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.cfg.Model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", transportErr("bedrock invoke", err)
	}
	return bedrockResponseText(resp.Body)
}

// bedrockRequestBody builds the Anthropic-on-Bedrock request document.
func bedrockRequestBody(cfg probe.Config, message string, history []session.Message) ([]byte, error) {
	msgs := make([]map[string]interface{}, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == session.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, map[string]interface{}{
			"role": role,
			"content": []map[string]interface{}{
				{"type": "text", "text": m.Content},
			},
		})
	}
	msgs = append(msgs, map[string]interface{}{
		"role": "user",
		"content": []map[string]interface{}{
			{"type": "text", "text": message},
		},
	})

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          msgs,
	}
	if cfg.SystemPrompt != "" {
		request["system"] = cfg.SystemPrompt
	}
	return json.Marshal(request)
}

// bedrockResponseText extracts the concatenated text blocks from a model
// response body.
func bedrockResponseText(body []byte) (string, error) {
	doc := gjson.ParseBytes(body)
	if errMsg := doc.Get("error"); errMsg.Exists() {
		return "", transportErr("bedrock response", errors.New("%s", errMsg.String()))
	}
	var out string
	for _, item := range doc.Get("content").Array() {
		if item.Get("type").String() == "text" {
			out += item.Get("text").String()
		}
	}
	return out, nil
}

func (a *bedrockAdapter) Close() error { return nil }
