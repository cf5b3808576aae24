// gemini_rest.go - Gemini provider calling the generateContent REST endpoint directly

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is the Google AI Studio API base URL
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// APIError is a non-2xx reply from the REST endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Status     string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// GeminiRESTProvider implements Generator over plain HTTP.
type GeminiRESTProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// RESTOption configures the GeminiRESTProvider
type RESTOption func(*GeminiRESTProvider)

// WithBaseURL sets a custom base URL (for testing)
func WithBaseURL(baseURL string) RESTOption {
	return func(p *GeminiRESTProvider) {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Host == "" {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) RESTOption {
	return func(p *GeminiRESTProvider) {
		p.httpClient = client
	}
}

// NewGeminiRESTProvider creates a REST client. Per-attempt timeouts come from the caller's context.
func NewGeminiRESTProvider(apiKey string, opts ...RESTOption) *GeminiRESTProvider {
	p := &GeminiRESTProvider{
		apiKey:     apiKey,
		baseURL:    DefaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provider returns the provider name
func (p *GeminiRESTProvider) Provider() string {
	return "gemini-rest"
}

type restRequest struct {
	SystemInstruction *restContent         `json:"system_instruction,omitempty"`
	Contents          []restContent        `json:"contents"`
	GenerationConfig  restGenerationConfig `json:"generationConfig"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *restInlineData `json:"inline_data,omitempty"`
}

type restInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type restGenerationConfig struct {
	ResponseMIMEType string `json:"response_mime_type"`
}

type restResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// blockingFinishReasons end a candidate without usable text because of policy.
var blockingFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

// Generate posts one generateContent request and returns the concatenated text parts.
func (p *GeminiRESTProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	payload := restRequest{
		SystemInstruction: &restContent{Parts: []restPart{{Text: req.SystemInstruction}}},
		Contents: []restContent{{
			Role: "user",
			Parts: []restPart{
				{Text: req.UserText},
				{InlineData: &restInlineData{
					MIMEType: req.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
			},
		}},
		GenerationConfig: restGenerationConfig{ResponseMIMEType: "application/json"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(req.Model), url.QueryEscape(p.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		// url.Error embeds the key-bearing URL; keep only the cause.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "", fmt.Errorf("request failed: %w", urlErr.Err)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeAPIError(resp.StatusCode, respBody)
	}

	var result restResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyResponse, err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrContentBlocked, result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	candidate := result.Candidates[0]
	if blockingFinishReasons[candidate.FinishReason] {
		return "", fmt.Errorf("%w: finish reason %s", ErrContentBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func decodeAPIError(status int, body []byte) error {
	var apiErr struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{StatusCode: status, Message: msg}
	}
	return &APIError{
		StatusCode: status,
		Message:    apiErr.Error.Message,
		Status:     apiErr.Error.Status,
	}
}
