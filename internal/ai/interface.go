// interface.go - Model client interface shared by every provider

package ai

import (
	"context"
	"fmt"
)

// Generator sends one multimodal request to a hosted model and returns its raw text.
// Implementations must honor ctx cancellation and must not retry internally.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Provider returns the provider name (e.g., "gemini", "gemini-rest", "openai")
	Provider() string
}

// GenerateRequest is the payload of a single outbound call.
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	UserText          string
	Image             []byte
	MIMEType          string
}

// Candidate is one model the orchestrator may try, bound to the client that serves it.
type Candidate struct {
	Model     string
	Generator Generator
	// Credential is the key Generator sends. Empty means the orchestrator's default key.
	Credential string
}

func (c Candidate) String() string {
	if c.Generator == nil {
		return c.Model
	}
	return fmt.Sprintf("%s:%s", c.Generator.Provider(), c.Model)
}
