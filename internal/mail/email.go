// Package mail parses inbound incident emails and decides whether they
// should trigger ticket creation.
package mail

// InboundEmail is a parsed incident report email.
type InboundEmail struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Date      string `json:"date"`
	MessageID string `json:"message_id"`
}

// Content returns the subject and body combined, the form used as the
// retrieval query and the generation input.
func (e *InboundEmail) Content() string {
	return e.Subject + "\n\n" + e.Body
}
