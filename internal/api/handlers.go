// handlers.go - HTTP handlers for analysis, archived reports and sessions.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/internal/ai"
	"github.com/bosocmputer/biometric_scan_gemini/internal/analysis"
	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
	"github.com/bosocmputer/biometric_scan_gemini/internal/session"
	"github.com/bosocmputer/biometric_scan_gemini/internal/storage"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps the uploaded image.
const DefaultMaxUploadBytes = 10 << 20

// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// Error kinds that only the HTTP layer produces.
const (
	kindBadRequest = "bad_request"
	kindSuperseded = "superseded"
	kindNotFound   = "not_found"
)

// Analyzer runs one analysis. *analysis.Service satisfies it.
type Analyzer interface {
	AnalyzeWithContext(ctx context.Context, req report.AnalysisRequest, reqCtx *common.RequestContext) (*analysis.Result, error)
}

// Handler serves the API. Reports may be nil when archiving is disabled.
type Handler struct {
	analyzer       Analyzer
	reports        storage.ReportStore
	sessions       *session.Registry
	maxUploadBytes int64
}

// NewHandler creates a Handler. A non-positive maxUploadBytes uses DefaultMaxUploadBytes.
func NewHandler(analyzer Analyzer, reports storage.ReportStore, sessions *session.Registry, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if sessions == nil {
		sessions = session.NewRegistry(0)
	}
	return &Handler{
		analyzer:       analyzer,
		reports:        reports,
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/analyze", h.Analyze)
	v1.GET("/reports/:id", h.GetReport)
	v1.GET("/sessions/:id", h.GetSession)
	v1.DELETE("/sessions/:id", h.ResetSession)
}

// isBodyTooLarge reports whether err came from the MaxBytesReader limit.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	// mime/multipart does not wrap every read error.
	return strings.Contains(err.Error(), "http: request body too large")
}

func errorResponse(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"kind":    kind,
			"message": message,
		},
	})
}

// statusFor maps a user-facing error kind to an HTTP status.
func statusFor(kind ai.ErrorKind) int {
	switch kind {
	case ai.ErrorInvalidKey:
		return http.StatusUnauthorized
	case ai.ErrorContentRejected:
		return http.StatusUnprocessableEntity
	case ai.ErrorRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// Analyze handles POST /api/v1/analyze (multipart: image, mode, style, language, session_id).
func (h *Handler) Analyze(c *gin.Context) {
	// Step 1: read the upload, bounded
	// Multipart framing needs a little room above the image limit.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isBodyTooLarge(err) {
			errorResponse(c, http.StatusBadRequest, kindBadRequest,
				fmt.Sprintf("image is too large (max %d bytes)", h.maxUploadBytes))
			return
		}
		errorResponse(c, http.StatusBadRequest, kindBadRequest, "malformed multipart body")
		return
	}
	lang := report.ParseLanguage(c.PostForm("language"))

	fileHeader, err := c.FormFile("image")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, kindBadRequest, "image file is required (multipart field \"image\")")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		errorResponse(c, http.StatusBadRequest, kindBadRequest,
			fmt.Sprintf("image is too large (%d bytes, max %d)", fileHeader.Size, h.maxUploadBytes))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, kindBadRequest, "failed to read image")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil || len(data) == 0 {
		errorResponse(c, http.StatusBadRequest, kindBadRequest, "image is empty or unreadable")
		return
	}

	req := report.AnalysisRequest{
		Image:    data,
		Mode:     report.ParseMode(c.PostForm("mode")),
		Style:    report.ParseStyle(c.PostForm("style")),
		Language: lang,
	}

	// Step 2: a session_id ties this request to a generation; newer requests win
	sessionID := c.PostForm("session_id")
	var sess *session.Session
	var token session.Token
	if sessionID != "" {
		sess = h.sessions.GetOrCreate(sessionID)
		token = sess.Begin()
	}

	reqCtx := common.NewRequestContext(sessionID)
	result, err := h.analyzer.AnalyzeWithContext(c.Request.Context(), req, reqCtx)
	summary := reqCtx.GetSummary()

	if err != nil {
		status, kind, message := h.classify(err, lang)
		if sess != nil && !sess.Fail(token, message) {
			errorResponse(c, http.StatusConflict, kindSuperseded, "a newer analysis replaced this one")
			return
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"kind":    kind,
				"message": message,
			},
			"request_id": reqCtx.RequestID,
		})
		return
	}

	if sess != nil && !sess.Complete(token, result) {
		reqCtx.LogWarning("Discarding result of superseded generation %d", token.Generation)
		errorResponse(c, http.StatusConflict, kindSuperseded, "a newer analysis replaced this one")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": result.RequestID,
		"report_id":  result.ReportID,
		"session_id": sessionID,
		"simulated":  result.Simulated,
		"notice":     result.Notice,
		"model":      result.Model,
		"attempts":   result.Attempts,
		"report":     result.Report,
		"share_text": result.Report.ShareText(lang),
		"metadata": gin.H{
			"processed_at": time.Now().Format(time.RFC3339),
			"duration_sec": summary["total_duration_sec"],
		},
	})
}

// classify turns an analysis error into status, kind and a localized message.
// Raw provider errors stay in the logs.
func (h *Handler) classify(err error, lang report.Language) (int, string, string) {
	if errors.Is(err, analysis.ErrEmptyImage) {
		return http.StatusBadRequest, kindBadRequest, "image is empty"
	}
	var analysisErr *ai.AnalysisError
	if errors.As(err, &analysisErr) {
		return statusFor(analysisErr.Kind), string(analysisErr.Kind), analysisErr.Message
	}
	return http.StatusBadGateway, string(ai.ErrorUnknown), ai.Message(ai.ErrorUnknown, lang)
}

// GetReport handles GET /api/v1/reports/:id.
func (h *Handler) GetReport(c *gin.Context) {
	if h.reports == nil {
		errorResponse(c, http.StatusNotFound, kindNotFound, "report archive is disabled")
		return
	}

	stored, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, kindNotFound, "report not found")
			return
		}
		common.Logger.WithError(err).Error("Failed to load report")
		errorResponse(c, http.StatusInternalServerError, string(ai.ErrorUnknown), "failed to load report")
		return
	}
	c.JSON(http.StatusOK, stored)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		errorResponse(c, http.StatusNotFound, kindNotFound, "session not found")
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// ResetSession handles DELETE /api/v1/sessions/:id: back to LANDING, in-flight results dropped.
func (h *Handler) ResetSession(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		errorResponse(c, http.StatusNotFound, kindNotFound, "session not found")
		return
	}
	sess.Reset()
	c.JSON(http.StatusOK, sess.Snapshot())
}
