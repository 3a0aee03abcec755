package mail

import (
	"log"
	"strings"
)

// minBodyLength is the minimum body size an email needs to be worth
// processing.
const minBodyLength = 10

// TriggerValidator decides whether an inbound email should start the
// incident workflow. An empty allow list means every sender is accepted.
type TriggerValidator struct {
	allowedSenders map[string]struct{}
}

func NewTriggerValidator(allowedSenders []string) *TriggerValidator {
	allowed := make(map[string]struct{}, len(allowedSenders))
	for _, s := range allowedSenders {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			allowed[s] = struct{}{}
		}
	}
	return &TriggerValidator{allowedSenders: allowed}
}

// ShouldProcess reports whether the email passes sender and content checks.
func (v *TriggerValidator) ShouldProcess(email *InboundEmail) bool {
	ok := v.RejectionReason(email) == ""
	if !ok {
		log.Printf("mail: rejecting email from %q: %s", email.From, v.RejectionReason(email))
	}
	return ok
}

// RejectionReason explains why an email fails validation, or returns an
// empty string when it passes.
func (v *TriggerValidator) RejectionReason(email *InboundEmail) string {
	from := strings.ToLower(strings.TrimSpace(email.From))
	if from == "" {
		return "no sender address found"
	}

	if len(v.allowedSenders) > 0 {
		if _, ok := v.allowedSenders[from]; !ok {
			return "sender " + from + " not in allowed list"
		}
	}

	if len(strings.TrimSpace(email.Body)) < minBodyLength {
		return "email body is empty or too short"
	}

	return ""
}
