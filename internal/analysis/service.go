// service.go - Analysis pipeline: preprocess, prompt, orchestrate, fallback, archive

package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/internal/ai"
	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"github.com/bosocmputer/biometric_scan_gemini/internal/processor"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
	"github.com/bosocmputer/biometric_scan_gemini/internal/storage"
	"github.com/google/uuid"
)

// ErrEmptyImage is returned when the request carries no image bytes.
var ErrEmptyImage = errors.New("image is empty")

// archiveTimeout bounds the archive step, which runs detached from the caller's cancellation.
const archiveTimeout = 10 * time.Second

// Runner drives the model candidates. *ai.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req report.AnalysisRequest, prompt ai.Prompt, reqCtx *common.RequestContext) (*ai.Outcome, error)
}

// Result is what a caller gets back from Analyze.
type Result struct {
	Report    *report.AnalysisReport `json:"report"`
	Simulated bool                   `json:"simulated"`
	Notice    string                 `json:"notice,omitempty"`
	Model     string                 `json:"model,omitempty"`
	Attempts  int                    `json:"attempts"`
	ReportID  string                 `json:"report_id,omitempty"`
	RequestID string                 `json:"request_id"`
}

// Options configures a Service. Reports and Portraits may be nil.
type Options struct {
	Preprocessor       *processor.Preprocessor
	Runner             Runner
	Fallback           *report.FallbackGenerator
	Reports            storage.ReportStore
	Portraits          storage.PortraitStore
	SimulationFallback bool
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	preprocessor       *processor.Preprocessor
	runner             Runner
	fallback           *report.FallbackGenerator
	reports            storage.ReportStore
	portraits          storage.PortraitStore
	simulationFallback bool
}

// NewService fills in a default preprocessor and fallback generator when missing.
func NewService(opts Options) *Service {
	if opts.Preprocessor == nil {
		opts.Preprocessor = processor.NewPreprocessor(0, 0)
	}
	if opts.Fallback == nil {
		opts.Fallback = report.NewFallbackGenerator(nil)
	}
	return &Service{
		preprocessor:       opts.Preprocessor,
		runner:             opts.Runner,
		fallback:           opts.Fallback,
		reports:            opts.Reports,
		portraits:          opts.Portraits,
		simulationFallback: opts.SimulationFallback,
	}
}

// Analyze runs one analysis with a fresh request context.
func (s *Service) Analyze(ctx context.Context, req report.AnalysisRequest) (*Result, error) {
	return s.AnalyzeWithContext(ctx, req, common.NewRequestContext(""))
}

// AnalyzeWithContext runs one analysis, logging every step through reqCtx.
//
// invalid_key and content_rejected always come back as *ai.AnalysisError. Any other total
// failure yields a locally generated report marked Simulated, unless simulation fallback is
// disabled. Cancellation of ctx is returned as is and never falls back.
func (s *Service) AnalyzeWithContext(ctx context.Context, req report.AnalysisRequest, reqCtx *common.RequestContext) (*Result, error) {
	if len(req.Image) == 0 {
		return nil, ErrEmptyImage
	}
	req.Style = report.ParseStyle(string(req.Style))
	req.Language = report.ParseLanguage(string(req.Language))
	if req.Mode == "" {
		req.Mode = report.ModeHeritage
	}

	reqCtx.WithField("mode", req.Mode).WithField("style", req.Style).WithField("language", req.Language).
		Info("🧬 Analysis started")

	// Step 1: shrink the image before it goes over the wire
	reqCtx.StartStep("image_preprocessing")
	originalSize := len(req.Image)
	req.Image, req.MIMEType = s.preprocessor.Preprocess(req.Image)
	reqCtx.LogInfo("Image %d → %d bytes (%s)", originalSize, len(req.Image), req.MIMEType)
	reqCtx.EndStep("success", nil)

	// Step 2
	reqCtx.StartStep("build_prompt")
	prompt := ai.BuildPrompt(req.Mode, req.Style, req.Language)
	reqCtx.EndStep("success", nil)

	// Step 3: try every candidate in order
	reqCtx.StartStep("model_orchestration")
	if s.runner == nil {
		err := ai.NewAnalysisError(ai.FailureNotFound, req.Language, 0, errors.New("no model runner configured"))
		reqCtx.EndStep("failed", err)
		return s.recover(ctx, req, reqCtx, err)
	}
	outcome, err := s.runner.Run(ctx, req, prompt, reqCtx)
	if err != nil {
		reqCtx.EndStep("failed", err)
		return s.recover(ctx, req, reqCtx, err)
	}
	reqCtx.EndStep("success", nil)

	result := &Result{
		Report:    outcome.Report,
		Model:     outcome.Model,
		Attempts:  outcome.Attempts,
		RequestID: reqCtx.RequestID,
	}
	s.archive(ctx, req, result, reqCtx)
	return result, nil
}

// recover applies the fallback policy to a failed orchestration.
func (s *Service) recover(ctx context.Context, req report.AnalysisRequest, reqCtx *common.RequestContext, err error) (*Result, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		reqCtx.LogWarning("Analysis canceled by caller")
		return nil, err
	}

	var analysisErr *ai.AnalysisError
	if !errors.As(err, &analysisErr) {
		analysisErr = ai.NewAnalysisError(ai.FailureMalformedResponse, req.Language, 0, err)
	}

	switch {
	case analysisErr.Kind == ai.ErrorInvalidKey, analysisErr.Kind == ai.ErrorContentRejected:
		reqCtx.LogError("%s: %v", analysisErr.Kind, analysisErr.Cause)
		return nil, analysisErr
	case !s.simulationFallback:
		reqCtx.LogError("%s after %d attempt(s), simulation fallback disabled", analysisErr.Kind, analysisErr.Attempts)
		return nil, analysisErr
	}

	reqCtx.StartStep("fallback_report")
	rep := s.fallback.Generate(req.Mode, req.Language)
	reqCtx.LogWarning("%s after %d attempt(s), serving simulated report", analysisErr.Kind, analysisErr.Attempts)
	reqCtx.EndStep("success", nil)

	result := &Result{
		Report:    rep,
		Simulated: true,
		Notice:    ai.SimulationNotice(req.Language),
		Attempts:  analysisErr.Attempts,
		RequestID: reqCtx.RequestID,
	}
	s.archive(ctx, req, result, reqCtx)
	return result, nil
}

// archive stores the portrait and the report. Failures are logged and never surface.
func (s *Service) archive(ctx context.Context, req report.AnalysisRequest, result *Result, reqCtx *common.RequestContext) {
	if s.reports == nil && s.portraits == nil {
		return
	}

	reqCtx.StartStep("archive_report")
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	reportID := uuid.New().String()
	var portraitURL string
	if s.portraits != nil {
		reqCtx.StartSubStep("store_portrait")
		url, err := s.portraits.Put(ctx, fmt.Sprintf("portraits/%s.jpg", reportID), req.Image, req.MIMEType)
		if err != nil {
			reqCtx.EndSubStep("failed")
			reqCtx.LogWarning("Portrait upload failed: %v", err)
		} else {
			reqCtx.EndSubStep(url)
			portraitURL = url
		}
	}

	if s.reports == nil {
		reqCtx.EndStep("success", nil)
		return
	}

	reqCtx.StartSubStep("store_report")
	err := s.reports.Save(ctx, storage.StoredReport{
		ReportID:    reportID,
		RequestID:   result.RequestID,
		Mode:        req.Mode,
		Style:       req.Style,
		Language:    req.Language,
		Simulated:   result.Simulated,
		Model:       result.Model,
		Attempts:    result.Attempts,
		Report:      result.Report,
		PortraitURL: portraitURL,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		reqCtx.EndSubStep("failed")
		reqCtx.LogWarning("Report archive failed: %v", err)
		reqCtx.EndStep("failed", err)
		return
	}
	reqCtx.EndSubStep(reportID)
	result.ReportID = reportID
	reqCtx.EndStep("success", nil)
}
