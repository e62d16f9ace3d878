package generate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/models"
)

// GeminiGenerator answers with a Gemini model through the Gemini API.
type GeminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiGenerator creates a generator for model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, maxTokens: maxTokens}, nil
}

// Generate sends blocks as the parts of one user turn. Image blocks are sent as inline bytes.
func (g *GeminiGenerator) Generate(ctx context.Context, blocks []models.ContentBlock) (string, error) {
	parts, err := geminiParts(blocks)
	if err != nil {
		return "", &Error{Provider: config.ProviderGemini, Err: err}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxTokens)},
	)
	if err != nil {
		return "", &Error{Provider: config.ProviderGemini, Err: err}
	}
	text := resp.Text()
	if text == "" {
		return "", &Error{Provider: config.ProviderGemini, Err: errors.New("response contained no text")}
	}
	return text, nil
}

func geminiParts(blocks []models.ContentBlock) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(blocks))
	for i, b := range blocks {
		switch b.Type {
		case models.BlockText:
			parts = append(parts, genai.NewPartFromText(b.Text))
		case models.BlockImage:
			data, err := base64.StdEncoding.DecodeString(b.Data)
			if err != nil {
				return nil, fmt.Errorf("block %d: decode image: %w", i, err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, b.MIME))
		}
	}
	return parts, nil
}
