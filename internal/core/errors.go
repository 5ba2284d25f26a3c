package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind discriminates the failure taxonomy adapters may surface,
// replacing substring sniffing over arbitrary exception text for
// rate-limit detection.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransport
	KindProtocol
	KindStructural
	KindAuth
	KindConfig
	KindRateLimit
	KindRegionalRestriction
	KindUnsupportedOperation
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "provider-transport"
	case KindProtocol:
		return "provider-protocol"
	case KindStructural:
		return "provider-structural"
	case KindAuth:
		return "provider-auth"
	case KindConfig:
		return "provider-config"
	case KindRateLimit:
		return "provider-rate-limit"
	case KindRegionalRestriction:
		return "provider-regional-restriction"
	case KindUnsupportedOperation:
		return "provider-unsupported-operation"
	default:
		return "unknown"
	}
}

// ProviderError is the structured error every adapter should return
// instead of a bare error with a human-readable message. RetryAfter is
// only meaningful when Kind == KindRateLimit; a zero value there means
// the adapter could not parse a retry hint and the engine should fall
// back to its own default.
type ProviderError struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Provider   string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a kind and, for rate limits, an
// optional explicit retry-after duration.
func NewProviderError(provider string, kind ErrorKind, retryAfter time.Duration, err error) *ProviderError {
	return &ProviderError{Kind: kind, RetryAfter: retryAfter, Provider: provider, Err: err}
}

// AsProviderError extracts a *ProviderError from err, if any wraps one.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Sentinel errors for failure cases that must surface to the caller.
var (
	// ErrNoProviderAvailable is raised by the registry (empty candidate
	// set) and by the engine (every adapter in a plan exhausted).
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrUnsupportedDataType marks a programmer error: the engine was
	// asked to dispatch a data type no fetch method exists for.
	ErrUnsupportedDataType = errors.New("unsupported data type")

	// ErrUnsupportedOperation marks an adapter that does not implement
	// a given fetch method at all (e.g. a news-only adapter asked for
	// price) — distinct from a transient failure.
	ErrUnsupportedOperation = errors.New("operation not supported by provider")

	// ErrEmptyMergeInput is a programmer error: merge called with zero
	// responses.
	ErrEmptyMergeInput = errors.New("no responses to merge")
)
