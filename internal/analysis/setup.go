// setup.go - Builds a Service from configuration

package analysis

import (
	"context"
	"fmt"

	"github.com/bosocmputer/biometric_scan_gemini/configs"
	"github.com/bosocmputer/biometric_scan_gemini/internal/ai"
	"github.com/bosocmputer/biometric_scan_gemini/internal/processor"
	"github.com/bosocmputer/biometric_scan_gemini/internal/ratelimit"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
	"github.com/bosocmputer/biometric_scan_gemini/internal/storage"
)

// FromConfig wires candidates, rate limiter, orchestrator and preprocessor.
// reports and portraits may be nil. The returned close func releases provider clients.
func FromConfig(ctx context.Context, cfg *configs.Config, reports storage.ReportStore, portraits storage.PortraitStore) (*Service, func() error, error) {
	factory := ai.NewFactory(cfg)
	candidates, err := factory.Candidates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build model candidates: %w", err)
	}

	limiter, err := ratelimit.New(cfg.RateLimitTokens, cfg.RateLimitRefill)
	if err != nil {
		factory.Close()
		return nil, nil, err
	}

	orch := ai.NewOrchestrator(cfg.GeminiAPIKey, candidates, limiter)
	orch.AttemptTimeout = cfg.AttemptTimeout
	orch.Backoff = ai.BackoffPolicy{
		InitialDelay:    cfg.BackoffInitial,
		MaxDelay:        cfg.BackoffMax,
		BackoffMultiple: ai.DefaultBackoff.BackoffMultiple,
		NetworkDelay:    cfg.NetworkRetryDelay,
	}

	svc := NewService(Options{
		Preprocessor:       processor.NewPreprocessor(cfg.MaxImageDimension, cfg.JPEGQuality),
		Runner:             orch,
		Fallback:           report.NewFallbackGenerator(nil),
		Reports:            reports,
		Portraits:          portraits,
		SimulationFallback: cfg.SimulationFallback,
	})
	return svc, factory.Close, nil
}
