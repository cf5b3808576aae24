// credential.go - Local plausibility check for the provider key

package ai

import (
	"errors"
	"fmt"
)

const minCredentialLength = 20

var (
	ErrMissingCredential     = errors.New("API key is missing")
	ErrImplausibleCredential = errors.New("API key is not plausible")
)

// ValidateCredential rejects keys that cannot possibly be valid, so that no request is sent with them.
func ValidateCredential(key string) error {
	if key == "" {
		return ErrMissingCredential
	}
	if len(key) < minCredentialLength {
		return fmt.Errorf("%w: too short (%d chars)", ErrImplausibleCredential, len(key))
	}
	for i, r := range key {
		if !isCredentialRune(r) {
			return fmt.Errorf("%w: unexpected character at position %d", ErrImplausibleCredential, i)
		}
	}
	return nil
}

func isCredentialRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '_' || r == '-' || r == '.'
}
