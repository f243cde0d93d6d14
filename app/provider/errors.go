package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrProviderTimeout marks a transport failure where the upstream call
	// did not complete. Submissions must not be blindly retried after this:
	// the provider may already have accepted the request.
	ErrProviderTimeout = errors.New("provider request timed out")

	// ErrDuplicateReference is returned when the provider rejects a
	// reference that was already used. The caller must generate a new one.
	ErrDuplicateReference = errors.New("reference already used")
)

// AuthError is a failed credential handshake with a provider. It is fatal
// and never retried automatically.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Provider, e.Message)
}

// ProviderError carries a non-success business response. Only the provider's
// message field crosses this boundary, never the raw payload.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func translateTransportError(providerName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", providerName, ErrProviderTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", providerName, ErrProviderTimeout)
	}
	return fmt.Errorf("%s request failed: %w", providerName, err)
}

func isDuplicateReferenceMessage(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "duplicate") || strings.Contains(lowered, "already exist")
}
