package generate

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/models"
)

// AnthropicGenerator answers with a Claude model through the Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicGenerator creates a generator for model. The SDK's automatic retries are
// disabled; each Generate is exactly one request. Extra request options (base URL, HTTP
// client) may be passed for testing.
func NewAnthropicGenerator(apiKey, model string, maxTokens int, opts ...option.RequestOption) *AnthropicGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicGenerator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Generate sends blocks as a single user message and concatenates the text of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, blocks []models.ContentBlock) (string, error) {
	content := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case models.BlockText:
			content = append(content, anthropic.NewTextBlock(b.Text))
		case models.BlockImage:
			content = append(content, anthropic.NewImageBlockBase64(b.MIME, b.Data))
		}
	}

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(content...)},
	})
	if err != nil {
		return "", &Error{Provider: config.ProviderAnthropic, Err: err}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &Error{Provider: config.ProviderAnthropic, Err: errors.New("response contained no text")}
	}
	return text.String(), nil
}
