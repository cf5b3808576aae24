// orchestrator.go - Sequential candidate loop with classified failures and backoff

package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
)

// DefaultAttemptTimeout bounds a single candidate request.
const DefaultAttemptTimeout = 25 * time.Second

// Limiter throttles outbound requests. *ratelimit.RateLimiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Orchestrator tries candidates strictly in order, one request at a time.
// It holds no per-request state and may be shared between requests.
type Orchestrator struct {
	Credential     string
	Candidates     []Candidate
	Backoff        BackoffPolicy
	AttemptTimeout time.Duration
	Limiter        Limiter
	Sleep          Sleeper
}

// Outcome describes a successful run.
type Outcome struct {
	Report   *report.AnalysisReport
	Model    string
	Provider string
	Attempts int
	Trail    []*AttemptError
}

// NewOrchestrator returns an Orchestrator with default backoff, timeout and sleeper.
func NewOrchestrator(credential string, candidates []Candidate, limiter Limiter) *Orchestrator {
	return &Orchestrator{
		Credential:     credential,
		Candidates:     candidates,
		Backoff:        DefaultBackoff,
		AttemptTimeout: DefaultAttemptTimeout,
		Limiter:        limiter,
		Sleep:          SleepContext,
	}
}

// Run drives the candidate loop. The first validated report wins.
// On failure it returns a single *AnalysisError; the caller decides whether to fall back.
func (o *Orchestrator) Run(ctx context.Context, req report.AnalysisRequest, prompt Prompt, reqCtx *common.RequestContext) (*Outcome, error) {
	lang := req.Language

	if len(o.Candidates) == 0 {
		return nil, NewAnalysisError(FailureNotFound, lang, 0, errors.New("no model candidates configured"))
	}
	candidates, credErr := o.usableCandidates(reqCtx)
	if len(candidates) == 0 {
		reqCtx.LogError("Credential rejected, no request sent: %v", credErr)
		return nil, NewAnalysisError(FailureInvalidKey, lang, 0, credErr)
	}

	sleep := o.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var trail []*AttemptError
	rejected := make(map[string]bool)
	for i, candidate := range candidates {
		key := o.credentialFor(candidate)
		if rejected[key] {
			reqCtx.LogInfo("Skipping %s: credential already rejected", candidate)
			continue
		}
		attempt := len(trail) + 1

		if o.Limiter != nil {
			reqCtx.StartSubStep("rate_limit_wait")
			err := o.Limiter.Wait(ctx)
			reqCtx.EndSubStep("")
			if err != nil {
				return nil, o.canceled(lang, trail, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, o.canceled(lang, trail, err)
		}

		reqCtx.LogInfo("Attempt %d/%d: %s", attempt, len(candidates), candidate)
		rep, attemptErr := o.attempt(ctx, candidate, req, prompt, reqCtx)
		if attemptErr == nil {
			if attempt > 1 {
				reqCtx.LogInfo("✅ Succeeded on attempt %d with %s", attempt, candidate)
			}
			return &Outcome{
				Report:   rep,
				Model:    candidate.Model,
				Provider: providerName(candidate),
				Attempts: attempt,
				Trail:    trail,
			}, nil
		}

		// A dead parent context makes every further attempt pointless.
		if err := ctx.Err(); err != nil {
			return nil, o.canceled(lang, append(trail, attemptErr), err)
		}

		trail = append(trail, attemptErr)
		reqCtx.LogWarning("Attempt %d failed: %v", attempt, attemptErr)

		rest := candidates[i+1:]
		if attemptErr.Kind == FailureInvalidKey {
			rejected[key] = true
			if !o.anyUsable(rest, rejected) {
				reqCtx.LogError("Credential rejected by provider, aborting remaining candidates")
				e := NewAnalysisError(FailureInvalidKey, lang, len(trail), attemptErr)
				e.Trail = trail
				return nil, e
			}
			reqCtx.LogInfo("Credential for %s rejected, trying candidates with another key", candidate)
			continue
		}

		if !o.anyUsable(rest, rejected) {
			break
		}

		if delay := o.Backoff.For(attemptErr.Kind, attempt); delay > 0 {
			reqCtx.StartSubStep("backoff")
			err := sleep(ctx, delay)
			reqCtx.EndSubStep(delay.String())
			if err != nil {
				return nil, o.canceled(lang, trail, err)
			}
		}
	}

	kind, cause := dominantFailure(trail)
	reqCtx.LogError("All %d candidates failed, reporting %s", len(trail), kind)
	e := NewAnalysisError(kind, lang, len(trail), cause)
	e.Trail = trail
	return nil, e
}

// attempt performs one request under its own timeout and validates the reply.
func (o *Orchestrator) attempt(ctx context.Context, candidate Candidate, req report.AnalysisRequest, prompt Prompt, reqCtx *common.RequestContext) (*report.AnalysisReport, *AttemptError) {
	timeout := o.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := candidate.String()
	if candidate.Generator == nil {
		return nil, &AttemptError{Candidate: name, Kind: FailureNotFound, Err: errors.New("candidate has no client")}
	}

	reqCtx.StartSubStep("call_model")
	raw, err := candidate.Generator.Generate(attemptCtx, GenerateRequest{
		Model:             candidate.Model,
		SystemInstruction: prompt.System,
		UserText:          prompt.User,
		Image:             req.Image,
		MIMEType:          req.MIMEType,
	})
	if err != nil {
		kind := Classify(err)
		reqCtx.EndSubStep(fmt.Sprintf("%s: %s", name, kind))
		return nil, &AttemptError{Candidate: name, Kind: kind, Err: err}
	}
	reqCtx.EndSubStep(fmt.Sprintf("%s: %d chars", name, len(raw)))

	reqCtx.StartSubStep("parse_response")
	rep, err := report.Parse(raw)
	if err != nil {
		reqCtx.EndSubStep("invalid")
		return nil, &AttemptError{Candidate: name, Kind: FailureMalformedResponse, Err: err}
	}
	reqCtx.EndSubStep("ok")
	return rep, nil
}

func (o *Orchestrator) credentialFor(c Candidate) string {
	if c.Credential != "" {
		return c.Credential
	}
	return o.Credential
}

// usableCandidates drops candidates whose key fails the local plausibility check.
// The returned error is the first such failure.
func (o *Orchestrator) usableCandidates(reqCtx *common.RequestContext) ([]Candidate, error) {
	var usable []Candidate
	var firstErr error
	for _, c := range o.Candidates {
		if err := ValidateCredential(o.credentialFor(c)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			reqCtx.LogWarning("Skipping %s: %v", c, err)
			continue
		}
		usable = append(usable, c)
	}
	return usable, firstErr
}

func (o *Orchestrator) anyUsable(rest []Candidate, rejected map[string]bool) bool {
	for _, c := range rest {
		if !rejected[o.credentialFor(c)] {
			return true
		}
	}
	return false
}

func (o *Orchestrator) canceled(lang report.Language, trail []*AttemptError, err error) *AnalysisError {
	e := &AnalysisError{
		Kind:     ErrorUnknown,
		Message:  Message(ErrorUnknown, lang),
		Attempts: len(trail),
		Trail:    trail,
		Cause:    err,
	}
	return e
}

func providerName(c Candidate) string {
	if c.Generator == nil {
		return ""
	}
	return c.Generator.Provider()
}
