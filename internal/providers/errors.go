package providers

import (
	"fmt"
	"strings"
)

// FailoverReason categorizes why a provider request failed, driving both
// retry-same-provider and advance-fallback-chain decisions (§4.B).
type FailoverReason string

const (
	FailoverRateLimit        FailoverReason = "rate_limit"
	FailoverAuth             FailoverReason = "auth"
	FailoverTimeout          FailoverReason = "timeout"
	FailoverServerError      FailoverReason = "server_error"
	FailoverInvalidRequest   FailoverReason = "invalid_request"
	FailoverModelUnavailable FailoverReason = "model_unavailable"
	FailoverContextOverflow  FailoverReason = "context_overflow"
	FailoverConfigMissing    FailoverReason = "config_missing"
	FailoverUnknown          FailoverReason = "unknown"
)

// IsRetryable reports whether retrying the same provider may succeed.
func (r FailoverReason) IsRetryable() bool {
	switch r {
	case FailoverRateLimit, FailoverTimeout, FailoverServerError:
		return true
	default:
		return false
	}
}

// ShouldFailover reports whether the router should advance to the next
// fallback-chain member rather than retry the same provider.
func (r FailoverReason) ShouldFailover() bool {
	switch r {
	case FailoverAuth, FailoverModelUnavailable, FailoverConfigMissing:
		return true
	default:
		return false
	}
}

// Error is the typed error every provider adapter returns (§7 "provider_failure").
type Error struct {
	Reason   FailoverReason
	Provider string
	Model    string
	Status   int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// contextOverflowMarkers are the substrings §4.H step 9 matches against a
// provider error's text to decide whether to compact-and-retry.
var contextOverflowMarkers = []string{
	"context_length",
	"max_tokens",
	"maximum context length",
	"token limit",
}

// IsContextOverflow reports whether err's message matches the
// context-overflow pattern set from §4.H.
func IsContextOverflow(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range contextOverflowMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
