// gemini.go - Gemini provider backed by the official generative-ai-go SDK

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements Generator using the Gemini SDK.
// One client is shared by every candidate model.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates the SDK client. Extra options are appended after the API key.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiProvider, error) {
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Provider returns the provider name
func (p *GeminiProvider) Provider() string {
	return "gemini"
}

// Generate sends the instruction, the user text and the image in one request.
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := p.client.GenerativeModel(req.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = ReportSchema()

	resp, err := model.GenerateContent(ctx,
		genai.Text(req.UserText),
		genai.Blob{
			MIMEType: req.MIMEType,
			Data:     req.Image,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", req.Model, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
