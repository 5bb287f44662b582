// Package openai backs every capability with OpenAI's Responses API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"telelingo/internal/capability"
)

const (
	baseMaxOutputTokens  int64 = 512
	limitMaxOutputTokens int64 = 4096

	DefaultModel = openai.ChatModelGPT5Mini2025_08_07
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Provider exposes detector, translator and summarizer capabilities.
type Provider struct {
	client responder
	model  openai.ChatModel
}

type responder interface {
	respond(ctx context.Context, model openai.ChatModel, instructions string, input string) (string, error)
}

// New builds a provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := openai.ChatModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		client: &responsesClient{client: openai.NewClient(opts...)},
		model:  model,
	}, nil
}

func (p *Provider) LanguageDetector() (capability.LanguageDetectorFactory, bool) {
	return detectorFactory{provider: p}, true
}

func (p *Provider) Translator() (capability.TranslatorFactory, bool) {
	return translatorFactory{provider: p}, true
}

func (p *Provider) Summarizer() (capability.SummarizerFactory, bool) {
	return summarizerFactory{provider: p}, true
}

func (p *Provider) respond(ctx context.Context, instructions string, input string) (string, error) {
	return p.client.respond(ctx, p.model, instructions, input)
}

type responsesClient struct {
	client openai.Client
}

// respond doubles the output budget on truncation until the limit is hit.
func (c *responsesClient) respond(
	ctx context.Context,
	model openai.ChatModel,
	instructions string,
	input string,
) (string, error) {
	maxOutputTokens := baseMaxOutputTokens
	for {
		resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Reasoning: responses.ReasoningParam{
				Effort: openai.ReasoningEffortLow,
			},
			Instructions: openai.String(instructions),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(input),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		output := strings.TrimSpace(resp.OutputText())
		if output == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return output, nil
	}
}
