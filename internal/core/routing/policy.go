// Package routing contains the pure policy deciding when an AI answer
// escalates to human staff. Thresholds are injected, never hard-coded.
package routing

import "fmt"

// Actions recorded on escalations created by the policy.
const (
	ActionLowConfidence    = "low_confidence"
	ActionNegativeFeedback = "negative_feedback"
)

// Policy holds the escalation trigger knobs.
type Policy struct {
	// ConfidenceThreshold is the score below which an AI answer escalates.
	ConfidenceThreshold float64
	// EscalateOnNegativeFeedback escalates confident answers the user rejected.
	EscalateOnNegativeFeedback bool
}

// Decision is the routing outcome for one answer.
type Decision struct {
	Escalate bool
	Action   string
	Reason   string
}

// Decide evaluates whether an answer needs human attention.
// Rules, in order:
// - confidence below the threshold always escalates
// - negative user feedback on a confident answer escalates when enabled
func Decide(p Policy, confidenceScore float64, negativeFeedback bool) Decision {
	if confidenceScore < p.ConfidenceThreshold {
		return Decision{
			Escalate: true,
			Action:   ActionLowConfidence,
			Reason:   fmt.Sprintf("confidence %.2f below threshold %.2f", confidenceScore, p.ConfidenceThreshold),
		}
	}
	if negativeFeedback && p.EscalateOnNegativeFeedback {
		return Decision{
			Escalate: true,
			Action:   ActionNegativeFeedback,
			Reason:   fmt.Sprintf("user rejected answer with confidence %.2f", confidenceScore),
		}
	}
	return Decision{}
}
