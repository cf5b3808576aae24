// request_context.go - Request tracking and logging system

package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestContext tracks one analysis request with step timing.
// It is safe for use from the goroutine running the request and the one reading its summary.
type RequestContext struct {
	RequestID           string
	SessionID           string
	StartTime           time.Time
	Steps               []StepLog
	CurrentStep         string
	CurrentStepStart    time.Time
	CurrentSubSteps     []SubStepLog
	CurrentSubStep      string
	CurrentSubStepStart time.Time

	entry *logrus.Entry
	mu    sync.Mutex
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string       `json:"name"`
	StartTime time.Time    `json:"start_time"`
	Duration  int64        `json:"duration_ms"`
	Status    string       `json:"status"` // "success", "failed", "skipped"
	Error     string       `json:"error,omitempty"`
	SubSteps  []SubStepLog `json:"sub_steps,omitempty"`
}

// SubStepLog represents a detailed sub-operation within a step
type SubStepLog struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Duration  int64     `json:"duration_ms"`
	Details   string    `json:"details,omitempty"`
}

var stepDescriptions = map[string]string{
	"image_preprocessing": "🔧 Preprocess portrait",
	"build_prompt":        "📢 Build prompt",
	"model_orchestration": "🚀 Query model candidates",
	"fallback_report":     "🎲 Synthesize simulated report",
	"archive_report":      "💾 Archive report",
}

var subStepDescriptions = map[string]string{
	"rate_limit_wait": "⏳ Wait for rate limit token",
	"call_model":      "🤖 Call model",
	"parse_response":  "🔄 Validate response",
	"backoff":         "💤 Backoff",
	"store_portrait":  "🖼️ Store portrait",
	"store_report":    "📝 Store report",
}

// NewRequestContext creates a new request tracking context
func NewRequestContext(sessionID string) *RequestContext {
	reqID := uuid.New().String()
	now := time.Now()

	entry := Logger.WithField("request_id", reqID)
	if sessionID != "" {
		entry = entry.WithField("session_id", sessionID)
	}
	entry.Infof("🚀 New analysis request at %s", now.Format("15:04:05"))

	return &RequestContext{
		RequestID: reqID,
		SessionID: sessionID,
		StartTime: now,
		Steps:     []StepLog{},
		entry:     entry,
	}
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.mu.Lock()
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()
	rc.mu.Unlock()

	desc := stepDescriptions[stepName]
	if desc == "" {
		desc = stepName
	}
	rc.entry.Infof("┌── %s", desc)
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	duration := time.Since(rc.CurrentStepStart).Milliseconds()
	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
		SubSteps:  rc.CurrentSubSteps,
	}

	if err != nil {
		stepLog.Error = err.Error()
		rc.entry.WithError(err).Errorf("❌ FAILED - %s (%.2fs)", rc.CurrentStep, float64(duration)/1000)
	} else {
		msg := fmt.Sprintf("└── ✅ %s: %.2fs", status, float64(duration)/1000)
		if len(rc.CurrentSubSteps) > 0 {
			msg += fmt.Sprintf(" | sub-steps: %d", len(rc.CurrentSubSteps))
		}
		rc.entry.Info(msg)
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
	rc.CurrentSubSteps = []SubStepLog{}
}

// StartSubStep begins tracking a detailed sub-operation
func (rc *RequestContext) StartSubStep(subStepName string) {
	rc.mu.Lock()
	rc.CurrentSubStep = subStepName
	rc.CurrentSubStepStart = time.Now()
	rc.mu.Unlock()

	desc := subStepDescriptions[subStepName]
	if desc == "" {
		desc = subStepName
	}
	rc.entry.Debugf("   ├─ %s...", desc)
}

// EndSubStep completes the current sub-step and records timing
func (rc *RequestContext) EndSubStep(details string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.CurrentSubStep == "" {
		return
	}

	duration := time.Since(rc.CurrentSubStepStart).Milliseconds()
	rc.CurrentSubSteps = append(rc.CurrentSubSteps, SubStepLog{
		Name:      rc.CurrentSubStep,
		StartTime: rc.CurrentSubStepStart,
		Duration:  duration,
		Details:   details,
	})

	detailsMsg := ""
	if details != "" {
		detailsMsg = " | " + details
	}
	rc.entry.Debugf("   └─ %s %.2fs%s", rc.CurrentSubStep, float64(duration)/1000, detailsMsg)
	rc.CurrentSubStep = ""
}

// GetSummary returns a final summary of the entire request
func (rc *RequestContext) GetSummary() map[string]interface{} {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	totalDuration := time.Since(rc.StartTime).Milliseconds()
	stepBreakdown := make(map[string]int64)
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] = step.Duration
	}

	rc.entry.WithFields(logrus.Fields{
		"total_ms": totalDuration,
		"steps":    len(rc.Steps),
	}).Infof("═══ 🎯 Done in %.2fs ═══", float64(totalDuration)/1000)

	return map[string]interface{}{
		"request_id":         rc.RequestID,
		"session_id":         rc.SessionID,
		"total_duration_ms":  totalDuration,
		"total_duration_sec": float64(totalDuration) / 1000,
		"step_breakdown":     stepBreakdown,
		"total_steps":        len(rc.Steps),
	}
}

// LogInfo logs info-level message with request ID prefix
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	rc.entry.Infof("ℹ️  "+format, args...)
}

// LogWarning logs warning-level message with request ID prefix
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	rc.entry.Warnf("⚠️  "+format, args...)
}

// LogError logs error-level message with request ID prefix
func (rc *RequestContext) LogError(format string, args ...interface{}) {
	rc.entry.Errorf("❌ "+format, args...)
}

// WithField returns the request's log entry with an extra field.
func (rc *RequestContext) WithField(key string, value interface{}) *logrus.Entry {
	return rc.entry.WithField(key, value)
}
