package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies why a market fetch failed
type FailureKind int

const (
	// FailureNoResponse covers transport failures without a response (refused, reset, bad body)
	FailureNoResponse FailureKind = iota
	// FailureTimeout is a request that ran into its deadline
	FailureTimeout
	// FailureServer is a response with a non-2xx status
	FailureServer
)

// String implements fmt.Stringer
func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureServer:
		return "server_error"
	default:
		return "no_response"
	}
}

// FetchError is returned by a Source when the feed could not be read
type FetchError struct {
	Kind       FailureKind
	StatusCode int // set for FailureServer
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FailureServer:
		return fmt.Sprintf("market feed returned status %d: %v", e.StatusCode, e.Err)
	case FailureTimeout:
		return fmt.Sprintf("market feed timed out: %v", e.Err)
	default:
		return fmt.Sprintf("market feed unreachable: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Classify turns any fetch error into a FetchError.
// Errors that are not already classified are inspected for timeouts; everything
// else counts as "no response".
func Classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Kind: FailureTimeout, Err: err}
	}

	return &FetchError{Kind: FailureNoResponse, Err: err}
}

const (
	messagePrefix   = "Failed to fetch cryptocurrency data. "
	messageRetrying = "Retrying..."
	messageFallback = "Using fallback data."
)

// describe renders the user-facing part of a failure message without the trailing action
func describe(err error) string {
	fe := Classify(err)
	switch fe.Kind {
	case FailureTimeout:
		return messagePrefix + "Request timed out. "
	case FailureServer:
		return fmt.Sprintf("%sServer error: %d. ", messagePrefix, fe.StatusCode)
	default:
		return messagePrefix + "No response from server. "
	}
}

// RetryingMessage is the non-fatal message shown while another attempt is pending
func RetryingMessage(err error) string {
	return describe(err) + messageRetrying
}

// FallbackMessage is the terminal message shown once the fallback dataset is in use
func FallbackMessage(err error) string {
	return describe(err) + messageFallback
}
