package classify

import (
	"regexp"
	"strings"

	"github.com/osa-run/osa/pkg/models"
)

// NoiseReason names why NoiseFilter decided a message is low-value (§4.G).
type NoiseReason string

const (
	ReasonEmpty        NoiseReason = "empty"
	ReasonTooShort      NoiseReason = "too_short"
	ReasonPatternMatch  NoiseReason = "pattern_match"
	ReasonLowWeight     NoiseReason = "low_weight"
	ReasonLLMClassified NoiseReason = "llm_classified"
)

// Verdict is the NoiseFilter's decision: either Noise is true and Reason
// is set, or the message carries a real Signal.
type Verdict struct {
	Noise  bool
	Reason NoiseReason
	Signal models.Signal
}

var greetingPattern = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|sup|good (morning|afternoon|evening))[.! ]*$`)
var thanksPattern = regexp.MustCompile(`(?i)^\s*(thanks?|thank you|ty|thx|cheers|appreciate it)[.! ]*$`)

// canned holds the acknowledgment string returned for each noise reason,
// per §4.G ("emoji thumbs-up, 'Got it.', 'Noted.', empty string").
var canned = map[NoiseReason]string{
	ReasonEmpty:       "",
	ReasonTooShort:    "👍",
	ReasonPatternMatch: "Got it.",
	ReasonLowWeight:   "Noted.",
}

// Acknowledgment returns the canned reply for a noise verdict.
func Acknowledgment(reason NoiseReason) string {
	return canned[reason]
}

// MinWeight is the Signal.Weight floor below which a message not caught
// by a pattern is still treated as noise.
const MinWeight = 0.15

// Filter classifies then decides noise-vs-signal for one inbound message.
func Filter(message string) Verdict {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Verdict{Noise: true, Reason: ReasonEmpty}
	}
	if len(trimmed) < 3 {
		return Verdict{Noise: true, Reason: ReasonTooShort}
	}
	if greetingPattern.MatchString(trimmed) || thanksPattern.MatchString(trimmed) {
		return Verdict{Noise: true, Reason: ReasonPatternMatch}
	}

	sig := Fast(trimmed, "")
	if sig.Weight < MinWeight {
		return Verdict{Noise: true, Reason: ReasonLowWeight, Signal: sig}
	}
	return Verdict{Noise: false, Signal: sig}
}
