package domain

// OutcomeKind is the terminal state of one redirect request.
type OutcomeKind int

const (
	OutcomeRedirect OutcomeKind = iota
	OutcomeFallback
	OutcomeServerError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeFallback:
		return "fallback"
	case OutcomeServerError:
		return "server_error"
	}
	return "unknown"
}

// Outcome is what the resolver decided. Reason is for logs and metrics only
// and must never reach the client.
type Outcome struct {
	Kind        OutcomeKind
	Location    string
	ComponentID string
	Branch      string
	Reason      string
	Err         error
}
