// factory.go - Builds the ordered candidate list from configuration

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bosocmputer/biometric_scan_gemini/configs"
	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
)

// Provider prefixes accepted in model entries ("provider:model").
const (
	ProviderGemini     = "gemini"
	ProviderGeminiREST = "gemini-rest"
	ProviderOpenAI     = "openai"
)

// Factory owns the provider clients behind the candidates it builds.
type Factory struct {
	cfg    *configs.Config
	sdk    *GeminiProvider
	rest   *GeminiRESTProvider
	openai *OpenAIProvider
}

// NewFactory creates a factory; clients are created lazily by Candidates.
func NewFactory(cfg *configs.Config) *Factory {
	return &Factory{cfg: cfg}
}

// ParseModelEntry splits "provider:model". Bare names use defaultProvider.
func ParseModelEntry(entry, defaultProvider string) (string, string, error) {
	entry = strings.TrimSpace(entry)
	provider, model := defaultProvider, entry
	if idx := strings.Index(entry, ":"); idx >= 0 {
		provider = strings.ToLower(strings.TrimSpace(entry[:idx]))
		model = strings.TrimSpace(entry[idx+1:])
	}
	if model == "" {
		return "", "", fmt.Errorf("empty model name in entry %q", entry)
	}
	switch provider {
	case ProviderGemini, ProviderGeminiREST, ProviderOpenAI:
		return provider, model, nil
	default:
		return "", "", fmt.Errorf("unsupported provider %q in entry %q (supported: gemini, gemini-rest, openai)", provider, entry)
	}
}

// Candidates builds the candidate list in configured order.
// OpenAI entries are skipped without a key; when a key is set and no OpenAI entry is listed,
// the configured OpenAI model is appended as the last resort.
func (f *Factory) Candidates(ctx context.Context) ([]Candidate, error) {
	defaultProvider := ProviderGemini
	if f.cfg.GeminiTransport == "rest" {
		defaultProvider = ProviderGeminiREST
	}

	var candidates []Candidate
	hasOpenAI := false
	for _, entry := range f.cfg.Models {
		provider, model, err := ParseModelEntry(entry, defaultProvider)
		if err != nil {
			return nil, err
		}

		if provider == ProviderOpenAI {
			if f.cfg.OpenAIAPIKey == "" {
				common.Logger.Warnf("⚠️  Skipping %s: OPENAI_API_KEY not set", entry)
				continue
			}
			hasOpenAI = true
		}

		gen, err := f.generator(ctx, provider)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{Model: model, Generator: gen, Credential: f.credential(provider)})
	}

	if !hasOpenAI && f.cfg.OpenAIAPIKey != "" && f.cfg.OpenAIModel != "" {
		gen, err := f.generator(ctx, ProviderOpenAI)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{Model: f.cfg.OpenAIModel, Generator: gen, Credential: f.cfg.OpenAIAPIKey})
		common.Logger.Infof("✅ Fallback provider configured: OpenAI (%s)", f.cfg.OpenAIModel)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no usable model candidates in %v", f.cfg.Models)
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.String()
	}
	common.Logger.Infof("🔵 Model candidates: %s", strings.Join(names, " → "))
	return candidates, nil
}

func (f *Factory) credential(provider string) string {
	if provider == ProviderOpenAI {
		return f.cfg.OpenAIAPIKey
	}
	return f.cfg.GeminiAPIKey
}

func (f *Factory) generator(ctx context.Context, provider string) (Generator, error) {
	switch provider {
	case ProviderGemini:
		if f.sdk == nil {
			sdk, err := NewGeminiProvider(ctx, f.cfg.GeminiAPIKey)
			if err != nil {
				// Without a usable key the SDK client cannot be built; the REST client
				// still lets the orchestrator report invalid_key per request.
				common.Logger.WithError(err).Warn("⚠️  Gemini SDK client unavailable, using REST transport")
				return f.generator(ctx, ProviderGeminiREST)
			}
			f.sdk = sdk
		}
		return f.sdk, nil
	case ProviderGeminiREST:
		if f.rest == nil {
			f.rest = NewGeminiRESTProvider(f.cfg.GeminiAPIKey, WithBaseURL(f.cfg.GeminiBaseURL))
		}
		return f.rest, nil
	case ProviderOpenAI:
		if f.openai == nil {
			f.openai = NewOpenAIProvider(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL)
		}
		return f.openai, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// Close releases SDK resources.
func (f *Factory) Close() error {
	if f.sdk != nil {
		return f.sdk.Close()
	}
	return nil
}
