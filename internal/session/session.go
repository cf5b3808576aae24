// session.go - Per-user scan flow with generation tokens
//
// Every analysis started for a session carries the generation it was started
// under. A result arriving after the user reset or started a newer analysis
// belongs to an older generation and is dropped.

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Step is the position of a session in the scan flow.
type Step string

const (
	StepLanding   Step = "LANDING"
	StepAnalyzing Step = "ANALYZING"
	StepResult    Step = "RESULT"
	StepError     Step = "ERROR"
)

// Token identifies one analysis started on a session.
type Token struct {
	SessionID  string
	Generation uint64
}

// Session tracks one user's flow. Safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	id         string
	step       Step
	generation uint64
	result     interface{}
	errMsg     string
	updatedAt  time.Time
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID         string      `json:"id"`
	Step       Step        `json:"step"`
	Generation uint64      `json:"generation"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// New creates a session on the landing step. An empty id gets a generated one.
func New(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{id: id, step: StepLanding, updatedAt: time.Now()}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Begin starts a new analysis and invalidates any in flight.
func (s *Session) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.step = StepAnalyzing
	s.result = nil
	s.errMsg = ""
	s.updatedAt = time.Now()
	return Token{SessionID: s.id, Generation: s.generation}
}

// Complete records a result. Returns false and changes nothing when the token is stale.
func (s *Session) Complete(token Token, result interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(token) {
		return false
	}
	s.step = StepResult
	s.result = result
	s.updatedAt = time.Now()
	return true
}

// Fail records a user-facing error message. Returns false when the token is stale.
func (s *Session) Fail(token Token, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(token) {
		return false
	}
	s.step = StepError
	s.errMsg = message
	s.updatedAt = time.Now()
	return true
}

// Reset returns to the landing step and discards whatever is in flight.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.step = StepLanding
	s.result = nil
	s.errMsg = ""
	s.updatedAt = time.Now()
}

// Current reports whether token still belongs to the latest analysis.
func (s *Session) Current(token Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(token)
}

func (s *Session) currentLocked(token Token) bool {
	return token.SessionID == s.id && token.Generation == s.generation && s.step == StepAnalyzing
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Step:       s.step,
		Generation: s.generation,
		Result:     s.result,
		Error:      s.errMsg,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Session) lastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
