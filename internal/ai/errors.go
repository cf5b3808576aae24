// errors.go - Attempt failure classification and the user-facing error type

package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
)

// FailureKind classifies the outcome of a single failed attempt.
type FailureKind string

const (
	FailureRateLimited        FailureKind = "rate_limited"
	FailureServerOverloaded   FailureKind = "server_overloaded"
	FailureInvalidKey         FailureKind = "invalid_key"
	FailureNotFound           FailureKind = "not_found"
	FailureContentRejected    FailureKind = "content_rejected"
	FailureMalformedResponse  FailureKind = "malformed_response"
	FailureNetworkUnreachable FailureKind = "network_unreachable"
)

// ErrorKind is the taxonomy surfaced to end users.
type ErrorKind string

const (
	ErrorInvalidKey         ErrorKind = "invalid_key"
	ErrorRateLimited        ErrorKind = "rate_limited"
	ErrorContentRejected    ErrorKind = "content_rejected"
	ErrorNetworkUnreachable ErrorKind = "network_unreachable"
	ErrorUnknown            ErrorKind = "unknown"
)

var (
	// ErrContentBlocked is returned by providers when a safety filter stopped the response.
	ErrContentBlocked = errors.New("content blocked by safety filter")
	// ErrEmptyResponse is returned by providers when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// AttemptError records why one candidate failed.
type AttemptError struct {
	Candidate string
	Kind      FailureKind
	Err       error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Candidate, e.Kind, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// AnalysisError is the single classified error an analysis fails with.
// Message is localized and safe to show; Cause and Trail are for logs only.
type AnalysisError struct {
	Kind     ErrorKind
	Failure  FailureKind
	Message  string
	Attempts int
	Trail    []*AttemptError
	Cause    error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s after %d attempt(s): %v", e.Kind, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s after %d attempt(s)", e.Kind, e.Attempts)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// NewAnalysisError builds an AnalysisError with the localized message for failure.
func NewAnalysisError(failure FailureKind, lang report.Language, attempts int, cause error) *AnalysisError {
	kind := ToErrorKind(failure)
	return &AnalysisError{
		Kind:     kind,
		Failure:  failure,
		Message:  Message(kind, lang),
		Attempts: attempts,
		Cause:    cause,
	}
}

// ToErrorKind maps an attempt failure onto the user-facing taxonomy.
func ToErrorKind(kind FailureKind) ErrorKind {
	switch kind {
	case FailureInvalidKey:
		return ErrorInvalidKey
	case FailureRateLimited, FailureServerOverloaded:
		return ErrorRateLimited
	case FailureContentRejected:
		return ErrorContentRejected
	case FailureNetworkUnreachable:
		return ErrorNetworkUnreachable
	default:
		return ErrorUnknown
	}
}

// Classify maps any provider, transport or validation error onto a FailureKind.
// Order matters: typed errors first, then HTTP status, then transport errors, then message text.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}

	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return attemptErr.Kind
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) || errors.Is(err, ErrContentBlocked) {
		return FailureContentRejected
	}
	if errors.Is(err, report.ErrMalformed) || errors.Is(err, ErrEmptyResponse) {
		return FailureMalformedResponse
	}

	if code, msg, ok := statusOf(err); ok {
		return classifyStatus(code, msg)
	}

	if isNetworkError(err) {
		return FailureNetworkUnreachable
	}

	return classifyMessage(err.Error())
}

// statusOf extracts an HTTP status and provider message from the error types our clients return.
func statusOf(err error) (int, string, bool) {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, gErr.Message + " " + gErr.Body, true
	}

	var restErr *APIError
	if errors.As(err, &restErr) {
		return restErr.StatusCode, restErr.Message, true
	}

	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return oaErr.HTTPStatusCode, oaErr.Message, true
	}

	var oaReqErr *openai.RequestError
	if errors.As(err, &oaReqErr) && oaReqErr.HTTPStatusCode > 0 {
		msg := ""
		if oaReqErr.Err != nil {
			msg = oaReqErr.Err.Error()
		}
		return oaReqErr.HTTPStatusCode, msg, true
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.HTTPCode(); code > 0 {
			return code, apiErr.Error(), true
		}
		if st := apiErr.GRPCStatus(); st != nil {
			if code := httpFromGRPC(st.Code()); code > 0 {
				return code, st.Message(), true
			}
		}
	}

	return 0, "", false
}

func httpFromGRPC(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return 400
	case codes.Unauthenticated:
		return 401
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.ResourceExhausted:
		return 429
	case codes.Internal:
		return 500
	case codes.Unavailable:
		return 503
	default:
		return 0
	}
}

func classifyStatus(code int, msg string) FailureKind {
	lower := strings.ToLower(msg)
	switch {
	case code == 401 || code == 403:
		return FailureInvalidKey
	case code == 400 && mentionsAPIKey(lower):
		return FailureInvalidKey
	case code == 400 && mentionsSafety(lower):
		return FailureContentRejected
	case code == 404:
		return FailureNotFound
	case code == 429:
		return FailureRateLimited
	case code >= 500:
		return FailureServerOverloaded
	default:
		return FailureMalformedResponse
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// classifyMessage is the last resort for errors that carry no status.
func classifyMessage(msg string) FailureKind {
	lower := strings.ToLower(msg)
	switch {
	case mentionsAPIKey(lower):
		return FailureInvalidKey
	case strings.Contains(lower, "quota"), strings.Contains(lower, "resource exhausted"),
		strings.Contains(lower, "resource_exhausted"), strings.Contains(lower, "rate limit"):
		return FailureRateLimited
	case strings.Contains(lower, "overloaded"), strings.Contains(lower, "unavailable"):
		return FailureServerOverloaded
	case mentionsSafety(lower):
		return FailureContentRejected
	case strings.Contains(lower, "not found"):
		return FailureNotFound
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"), strings.Contains(lower, "timeout"),
		strings.Contains(lower, "network"):
		return FailureNetworkUnreachable
	default:
		return FailureMalformedResponse
	}
}

func mentionsAPIKey(lower string) bool {
	return strings.Contains(lower, "api key") || strings.Contains(lower, "api_key")
}

func mentionsSafety(lower string) bool {
	return strings.Contains(lower, "safety") || strings.Contains(lower, "blocked") ||
		strings.Contains(lower, "prohibited")
}

// failurePrecedence decides which failure an exhausted run reports.
var failurePrecedence = []FailureKind{
	FailureRateLimited,
	FailureServerOverloaded,
	FailureNetworkUnreachable,
	FailureContentRejected,
	FailureNotFound,
	FailureMalformedResponse,
}

// dominantFailure returns the highest-precedence kind in trail and the first error of that kind.
func dominantFailure(trail []*AttemptError) (FailureKind, *AttemptError) {
	for _, kind := range failurePrecedence {
		for _, a := range trail {
			if a.Kind == kind {
				return kind, a
			}
		}
	}
	if len(trail) > 0 {
		return trail[len(trail)-1].Kind, trail[len(trail)-1]
	}
	return FailureMalformedResponse, nil
}
