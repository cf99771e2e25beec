// Package llmscript generates and reviews bulletin scripts with an
// OpenAI-compatible chat completion API (OpenRouter by default).
package llmscript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"newscast/internal/config"
	"newscast/internal/logging"
	"newscast/internal/production"
	"newscast/internal/providers/httpjson"
	"newscast/internal/services"
)

const defaultTimeout = 60 * time.Second

// Client implements providers.ScriptGenerator and providers.ScriptReviewer.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// New builds a client from the llm config section. Extra request options are appended
// after the configured ones.
func New(cfg config.LLM, logger *slog.Logger, opts ...option.RequestOption) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llmscript", "new", "llm api key not set", nil)
	}
	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(base))
	}
	requestOpts = append(requestOpts, opts...)

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		client:      openai.NewClient(requestOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logging.NewComponentLogger(logger, "llmscript"),
	}, nil
}

// GenerateScript asks the model for a scene list covering news.
func (c *Client) GenerateScript(ctx context.Context, news []production.NewsItem, hint string) (production.Script, error) {
	if len(news) == 0 {
		return production.Script{}, services.Wrap(services.ErrValidation, "llmscript", "generate", "no stories selected", nil)
	}
	var prompt strings.Builder
	prompt.WriteString("Stories:\n")
	for i, item := range news {
		fmt.Fprintf(&prompt, "%d. %s", i+1, strings.TrimSpace(item.Headline))
		if summary := strings.TrimSpace(item.Summary); summary != "" {
			fmt.Fprintf(&prompt, ": %s", summary)
		}
		if item.Source != "" {
			fmt.Fprintf(&prompt, " (%s)", item.Source)
		}
		prompt.WriteString("\n")
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		fmt.Fprintf(&prompt, "\nNarrative direction: %s\n", hint)
	}

	content, err := c.complete(ctx, ScriptPrompt, prompt.String())
	if err != nil {
		return production.Script{}, services.Wrap(services.ErrGenerationFailed, "llmscript", "generate", "script completion failed", err)
	}
	var script production.Script
	if err := httpjson.DecodeLenient(content, &script); err != nil {
		return production.Script{}, services.Wrap(services.ErrGenerationFailed, "llmscript", "generate", "parse script", err)
	}
	if err := checkScript(script); err != nil {
		return production.Script{}, services.Wrap(services.ErrGenerationFailed, "llmscript", "generate", err.Error(), nil)
	}
	c.logger.Info("script generated",
		logging.Int("scenes", len(script.Scenes)),
		logging.Int("stories", len(news)),
	)
	return script, nil
}

type reviewPayload struct {
	Approved bool              `json:"approved"`
	Notes    string            `json:"notes"`
	Script   production.Script `json:"script"`
}

// Review asks the model to edit script. A reply without a usable script keeps the
// original scenes.
func (c *Client) Review(ctx context.Context, script production.Script) (production.Review, error) {
	encoded, err := json.Marshal(script)
	if err != nil {
		return production.Review{}, fmt.Errorf("llmscript review: encode script: %w", err)
	}
	content, err := c.complete(ctx, ReviewPrompt, string(encoded))
	if err != nil {
		return production.Review{}, services.Wrap(services.ErrGenerationFailed, "llmscript", "review", "review completion failed", err)
	}
	var payload reviewPayload
	if err := httpjson.DecodeLenient(content, &payload); err != nil {
		return production.Review{}, services.Wrap(services.ErrGenerationFailed, "llmscript", "review", "parse review", err)
	}
	review := production.Review{Approved: payload.Approved, Notes: strings.TrimSpace(payload.Notes), Script: payload.Script}
	if checkScript(review.Script) != nil {
		review.Script = script
	}
	if review.Script.Title == "" {
		review.Script.Title = script.Title
	}
	return review, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			return "", services.Wrap(services.ErrTransient, "llmscript", "complete", "rate limited", err)
		}
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content (finish_reason=%q)", completion.Choices[0].FinishReason)
	}
	return content, nil
}

func checkScript(script production.Script) error {
	if len(script.Scenes) == 0 {
		return errors.New("script has no scenes")
	}
	for i, scene := range script.Scenes {
		if strings.TrimSpace(scene.Speaker) == "" || strings.TrimSpace(scene.Text) == "" {
			return fmt.Errorf("scene %d missing speaker or text", i)
		}
	}
	return nil
}
