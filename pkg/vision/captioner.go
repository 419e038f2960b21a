// Package vision generates alt text for images with a multimodal model.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned before any network call when no API key is
// configured.
var ErrMissingAPIKey = errors.New("AI API key not configured. Please set it in the extension options")

// UpstreamError carries the provider's own error message.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Captioner calls a multimodal completion endpoint to generate alt text.
type Captioner struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
}

// CaptionerConfig configures the captioner.
type CaptionerConfig struct {
	APIKey    string
	Model     string
	BaseURL   string // optional override for OpenAI-compatible endpoints
	MaxTokens int
}

// NewCaptioner creates a new captioner.
func NewCaptioner(cfg CaptionerConfig) *Captioner {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 300
	}
	return &Captioner{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		maxTokens: cfg.MaxTokens,
	}
}

// CaptionRequest contains the image payload and its context.
type CaptionRequest struct {
	ImageBase64 string // JPEG payload, already rendered
	ImageURL    string
	Filename    string
	OriginalAlt string
	HTMLContext string
	Language    string // "en" or "cs"
}

// Generate builds the language-specific prompt and asks the model for alt
// text. The returned string is trimmed; everything else the model said is
// passed through untouched.
func (c *Captioner) Generate(ctx context.Context, req *CaptionRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	prompt := BuildPrompt(req.Language, PromptInput{
		ImageURL:    req.ImageURL,
		Filename:    req.Filename,
		OriginalAlt: req.OriginalAlt,
		HTMLContext: req.HTMLContext,
	})

	opts := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := openai.NewClient(opts...)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + req.ImageBase64,
		}),
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		MaxTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Message: apiErr.Message}
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Message: "no response from model"}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
