package ai

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
)

const (
	validKey   = "AIzaSyA-test_key.0123456789abcdef"
	goodReport = `{"metrics":{"cheekbones":"High","eyes":"Deep","jawline":"Square"},
		"primaryMatch":{"name":"Ada Lovelace","percentage":91,"reason":"Brow"},
		"alternatives":[{"name":"Mary Shelley","percentage":84},{"name":"Emmy Noether","percentage":80}],
		"attributes":{"intelligence":97,"dominance":55,"creativity":92,"resilience":80,"charisma":70},
		"narrative":"An analytical engine."}`
)

func init() {
	common.Logger.SetOutput(io.Discard)
}

// scriptedGenerator replays one response per call and records what it was asked.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []scripted
	calls     []GenerateRequest
}

type scripted struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next.text, next.err
}

func (g *scriptedGenerator) Provider() string { return "fake" }

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *recordingSleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

func newTestOrchestrator(key string, gen Generator, models ...string) (*Orchestrator, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	candidates := make([]Candidate, len(models))
	for i, m := range models {
		candidates[i] = Candidate{Model: m, Generator: gen}
	}
	o := NewOrchestrator(key, candidates, nil)
	o.Sleep = sleeper.Sleep
	return o, sleeper
}

func testRequest() report.AnalysisRequest {
	return report.AnalysisRequest{
		Image:    []byte{0xff, 0xd8, 0xff},
		MIMEType: "image/jpeg",
		Mode:     report.ModeHeritage,
		Style:    report.StyleScientific,
		Language: report.LangEnglish,
	}
}

func run(t *testing.T, o *Orchestrator, req report.AnalysisRequest) (*Outcome, *AnalysisError) {
	t.Helper()
	prompt := BuildPrompt(req.Mode, req.Style, req.Language)
	out, err := o.Run(context.Background(), req, prompt, common.NewRequestContext("test"))
	if err == nil {
		return out, nil
	}
	var aErr *AnalysisError
	if !errors.As(err, &aErr) {
		t.Fatalf("expected *AnalysisError, got %T: %v", err, err)
	}
	return nil, aErr
}

func rateLimitErr() error {
	return &APIError{StatusCode: 429, Message: "Resource has been exhausted (e.g. check quota)."}
}

func TestRunInvalidCredentialMakesNoCalls(t *testing.T) {
	for _, key := range []string{"", "short", "has space in the middle of it", "key-with-!-bang-0123456789"} {
		gen := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
		o, _ := newTestOrchestrator(key, gen, "m1", "m2")

		_, err := run(t, o, testRequest())
		if err == nil {
			t.Fatalf("key %q: expected error", key)
		}
		if err.Kind != ErrorInvalidKey || err.Attempts != 0 {
			t.Errorf("key %q: kind=%s attempts=%d", key, err.Kind, err.Attempts)
		}
		if gen.callCount() != 0 {
			t.Errorf("key %q: %d calls made, want 0", key, gen.callCount())
		}
	}
}

func TestRunRateLimitedThenSuccess(t *testing.T) {
	for _, n := range []int{1, 2, 4, 6} {
		responses := make([]scripted, 0, n)
		for i := 0; i < n-1; i++ {
			responses = append(responses, scripted{err: rateLimitErr()})
		}
		responses = append(responses, scripted{text: goodReport})
		gen := &scriptedGenerator{responses: responses}

		models := make([]string, n)
		for i := range models {
			models[i] = "model-" + string(rune('a'+i))
		}
		o, sleeper := newTestOrchestrator(validKey, gen, models...)

		out, err := run(t, o, testRequest())
		if err != nil {
			t.Fatalf("n=%d: unexpected error %v", n, err)
		}
		if out.Attempts != n || gen.callCount() != n {
			t.Errorf("n=%d: attempts=%d calls=%d", n, out.Attempts, gen.callCount())
		}
		if out.Model != models[n-1] {
			t.Errorf("n=%d: model=%s, want %s", n, out.Model, models[n-1])
		}
		if bound := time.Duration(n-1) * DefaultBackoff.MaxDelay; sleeper.total() > bound {
			t.Errorf("n=%d: cumulative backoff %v exceeds %v", n, sleeper.total(), bound)
		}
		if len(sleeper.delays) != n-1 {
			t.Errorf("n=%d: %d sleeps, want %d", n, len(sleeper.delays), n-1)
		}
	}
}

func TestRunBackoffGrowsAndCaps(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{
		{err: rateLimitErr()},
		{err: &APIError{StatusCode: 503, Message: "The model is overloaded."}},
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{text: goodReport},
	}}
	o, sleeper := newTestOrchestrator(validKey, gen, "a", "b", "c", "d", "e")

	if _, err := run(t, o, testRequest()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
}

func TestRunMalformedAdvancesWithoutDelay(t *testing.T) {
	missingPrimary := `{"metrics":{},"alternatives":[{"name":"x","percentage":1}],"attributes":{},"narrative":"n"}`
	gen := &scriptedGenerator{responses: []scripted{
		{text: "```json\n" + missingPrimary + "\n```"},
		{text: ""},
		{text: goodReport},
	}}
	o, sleeper := newTestOrchestrator(validKey, gen, "a", "b", "c")

	out, err := run(t, o, testRequest())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.Attempts != 3 || out.Model != "c" {
		t.Errorf("attempts=%d model=%s", out.Attempts, out.Model)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no delays, got %v", sleeper.delays)
	}
	if len(out.Trail) != 2 || out.Trail[0].Kind != FailureMalformedResponse || out.Trail[1].Kind != FailureMalformedResponse {
		t.Errorf("trail = %v", out.Trail)
	}
}

func TestRunFirstSuccessWins(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{text: goodReport}, {text: goodReport}}}
	o, _ := newTestOrchestrator(validKey, gen, "a", "b")

	out, err := run(t, o, testRequest())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.Attempts != 1 || gen.callCount() != 1 {
		t.Errorf("attempts=%d calls=%d, want 1", out.Attempts, gen.callCount())
	}
	if out.Report.PrimaryMatch.Name != "Ada Lovelace" || out.Provider != "fake" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestRunAllContentRejected(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{
		{err: ErrContentBlocked},
		{err: &APIError{StatusCode: 400, Message: "Request blocked due to SAFETY"}},
		{err: ErrContentBlocked},
	}}
	req := testRequest()
	req.Language = report.LangTurkish
	o, sleeper := newTestOrchestrator(validKey, gen, "a", "b", "c")

	_, err := run(t, o, req)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != ErrorContentRejected || err.Failure != FailureContentRejected {
		t.Errorf("kind=%s failure=%s", err.Kind, err.Failure)
	}
	if err.Attempts != 3 || len(err.Trail) != 3 {
		t.Errorf("attempts=%d trail=%d", err.Attempts, len(err.Trail))
	}
	if err.Message != Message(ErrorContentRejected, report.LangTurkish) {
		t.Errorf("message = %q", err.Message)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no delays, got %v", sleeper.delays)
	}
}

func TestRunProviderInvalidKeyAborts(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{
		{err: rateLimitErr()},
		{err: &APIError{StatusCode: 400, Message: "API key not valid. Please pass a valid API key."}},
		{text: goodReport},
	}}
	o, _ := newTestOrchestrator(validKey, gen, "a", "b", "c")

	_, err := run(t, o, testRequest())
	if err == nil || err.Kind != ErrorInvalidKey {
		t.Fatalf("expected invalid_key, got %v", err)
	}
	if gen.callCount() != 2 {
		t.Errorf("calls = %d, want 2", gen.callCount())
	}
}

func TestRunExhaustionPrecedence(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want FailureKind
	}{
		{"rate limit beats everything", []error{ErrContentBlocked, rateLimitErr(), &APIError{StatusCode: 404}}, FailureRateLimited},
		{"overload beats network", []error{context.DeadlineExceeded, &APIError{StatusCode: 503}}, FailureServerOverloaded},
		{"network beats safety", []error{ErrContentBlocked, context.DeadlineExceeded}, FailureNetworkUnreachable},
		{"not found beats malformed", []error{ErrEmptyResponse, &APIError{StatusCode: 404, Message: "models/x is not found"}}, FailureNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := make([]scripted, len(tt.errs))
			models := make([]string, len(tt.errs))
			for i, e := range tt.errs {
				responses[i] = scripted{err: e}
				models[i] = string(rune('a' + i))
			}
			o, sleeper := newTestOrchestrator(validKey, &scriptedGenerator{responses: responses}, models...)

			_, err := run(t, o, testRequest())
			if err == nil || err.Failure != tt.want {
				t.Fatalf("failure = %v, want %s", err, tt.want)
			}
			if len(sleeper.delays) > len(tt.errs)-1 {
				t.Errorf("slept after the last candidate: %v", sleeper.delays)
			}
		})
	}
}

func TestRunNetworkDelay(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{err: context.DeadlineExceeded}, {text: goodReport}}}
	o, sleeper := newTestOrchestrator(validKey, gen, "a", "b")

	if _, err := run(t, o, testRequest()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != DefaultBackoff.NetworkDelay {
		t.Errorf("delays = %v, want [%v]", sleeper.delays, DefaultBackoff.NetworkDelay)
	}
}

// blockingGenerator waits for its context to end.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingGenerator) Provider() string { return "blocking" }

func TestRunAttemptTimeoutAdvances(t *testing.T) {
	good := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	sleeper := &recordingSleeper{}
	o := &Orchestrator{
		Credential:     validKey,
		Candidates:     []Candidate{{Model: "hung", Generator: blockingGenerator{}}, {Model: "ok", Generator: good}},
		Backoff:        DefaultBackoff,
		AttemptTimeout: 20 * time.Millisecond,
		Sleep:          sleeper.Sleep,
	}

	out, err := run(t, o, testRequest())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.Model != "ok" || out.Trail[0].Kind != FailureNetworkUnreachable {
		t.Errorf("model=%s trail=%v", out.Model, out.Trail)
	}
}

func TestRunParentCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGenerator{responses: []scripted{{err: rateLimitErr()}, {text: goodReport}}}
	o, _ := newTestOrchestrator(validKey, gen, "a", "b")
	o.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	req := testRequest()
	_, err := o.Run(ctx, req, BuildPrompt(req.Mode, req.Style, req.Language), common.NewRequestContext(""))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if gen.callCount() != 1 {
		t.Errorf("calls = %d, want 1", gen.callCount())
	}
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return nil
}

func TestRunWaitsOnLimiterPerAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{err: ErrEmptyResponse}, {text: goodReport}}}
	o, _ := newTestOrchestrator(validKey, gen, "a", "b")
	limiter := &countingLimiter{}
	o.Limiter = limiter

	if _, err := run(t, o, testRequest()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if limiter.waits != 2 {
		t.Errorf("limiter waits = %d, want 2", limiter.waits)
	}
}

func TestRunSendsPromptAndImage(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	o, _ := newTestOrchestrator(validKey, gen, "gemini-1.5-flash")
	req := testRequest()

	if _, err := run(t, o, req); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	call := gen.calls[0]
	prompt := BuildPrompt(req.Mode, req.Style, req.Language)
	if call.Model != "gemini-1.5-flash" || call.SystemInstruction != prompt.System || call.UserText != prompt.User {
		t.Errorf("unexpected request: %+v", call)
	}
	if call.MIMEType != "image/jpeg" || len(call.Image) != len(req.Image) {
		t.Errorf("image not forwarded: %+v", call)
	}
}

func TestRunNoCandidates(t *testing.T) {
	o := NewOrchestrator(validKey, nil, nil)
	_, err := run(t, o, testRequest())
	if err == nil || err.Kind != ErrorUnknown || err.Attempts != 0 {
		t.Fatalf("unexpected %v", err)
	}
}

const openAIKey = "sk-proj-test_0123456789abcdefXYZ"

func TestRunOpenAIOnlyWithoutGeminiKey(t *testing.T) {
	gen := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	o := NewOrchestrator("", []Candidate{{Model: "gpt-4o", Generator: gen, Credential: openAIKey}}, nil)

	out, err := run(t, o, testRequest())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if out.Model != "gpt-4o" || out.Attempts != 1 || gen.callCount() != 1 {
		t.Errorf("model=%s attempts=%d calls=%d", out.Model, out.Attempts, gen.callCount())
	}
}

func TestRunSkipsCandidatesWithoutPlausibleKey(t *testing.T) {
	gemini := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	openai := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	o := NewOrchestrator("", []Candidate{
		{Model: "gemini-1.5-flash", Generator: gemini},
		{Model: "gpt-4o", Generator: openai, Credential: openAIKey},
	}, nil)

	out, err := run(t, o, testRequest())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gemini.callCount() != 0 {
		t.Errorf("gemini called %d times without a key", gemini.callCount())
	}
	if out.Model != "gpt-4o" || out.Attempts != 1 {
		t.Errorf("model=%s attempts=%d", out.Model, out.Attempts)
	}
}

func TestRunRejectedKeyMovesToOtherProvider(t *testing.T) {
	badKey := &APIError{StatusCode: 400, Message: "API key not valid. Please pass a valid API key.", Status: "INVALID_ARGUMENT"}
	gemini := &scriptedGenerator{responses: []scripted{{err: badKey}, {text: goodReport}}}
	openai := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	o := NewOrchestrator(validKey, []Candidate{
		{Model: "gemini-1.5-flash", Generator: gemini},
		{Model: "gemini-2.0-flash", Generator: gemini},
		{Model: "gpt-4o", Generator: openai, Credential: openAIKey},
	}, nil)
	sleeper := &recordingSleeper{}
	o.Sleep = sleeper.Sleep

	out, err := run(t, o, testRequest())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gemini.callCount() != 1 {
		t.Errorf("gemini calls = %d, want 1 (rejected key must not be reused)", gemini.callCount())
	}
	if out.Model != "gpt-4o" || out.Attempts != 2 {
		t.Errorf("model=%s attempts=%d", out.Model, out.Attempts)
	}
	if len(out.Trail) != 1 || out.Trail[0].Kind != FailureInvalidKey {
		t.Errorf("trail = %v", out.Trail)
	}
}

func TestRunRejectedKeyAbortsWhenNoOtherKey(t *testing.T) {
	badKey := &APIError{StatusCode: 400, Message: "API key not valid. Please pass a valid API key.", Status: "INVALID_ARGUMENT"}
	gemini := &scriptedGenerator{responses: []scripted{{err: badKey}, {text: goodReport}}}
	openai := &scriptedGenerator{responses: []scripted{{text: goodReport}}}
	o := NewOrchestrator(validKey, []Candidate{
		{Model: "gpt-4o", Generator: openai, Credential: "sk-short"},
		{Model: "gemini-1.5-flash", Generator: gemini},
		{Model: "gemini-2.0-flash", Generator: gemini},
	}, nil)

	_, err := run(t, o, testRequest())
	if err == nil || err.Kind != ErrorInvalidKey {
		t.Fatalf("expected invalid_key, got %v", err)
	}
	if openai.callCount() != 0 || gemini.callCount() != 1 {
		t.Errorf("openai calls=%d gemini calls=%d", openai.callCount(), gemini.callCount())
	}
}
