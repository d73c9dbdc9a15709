package moderation

// Violation categories. These labels are stable: they appear in metrics
// and structured logs, and the offline report keys off the reason
// strings derived from them.
const (
	CategoryHateSpeech = "hate_speech"
	CategoryPII        = "pii"
	CategoryJailbreak  = "jailbreak"
	CategoryClassifier = "classifier"
)

// Decision is the outcome of one moderation check. Reason is empty
// exactly when Allowed is true.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Allow returns the allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Block returns a blocking decision for the given category with a
// human-readable reason.
func Block(category, reason string) Decision {
	return Decision{Allowed: false, Category: category, Reason: reason}
}
