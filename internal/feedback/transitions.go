// Package feedback records user reactions to opportunities and drives the
// workflow status machine.
//
// Status graph (table-driven, last-write-wins):
//
//	NEW ──► SENT (digest delivered)
//	 │
//	 ├────► SAVED     (LIKE, SAVED)
//	 ├────► DISMISSED (DISLIKE, or sub-floor score at ingestion)
//	 └────► APPLIED   (APPLIED)
//
// No state is terminal: a user may re-like a dismissed item, so any mapped
// action applies from any current status.
package feedback

import "fmt"

// Action values mirror the feedback actions accepted over the API.
type Action string

const (
	ActionLike          Action = "LIKE"
	ActionDislike       Action = "DISLIKE"
	ActionIgnoreCompany Action = "IGNORE_COMPANY"
	ActionIgnoreSender  Action = "IGNORE_SENDER"
	ActionMoreLikeThis  Action = "MORE_LIKE_THIS"
	ActionLessLikeThis  Action = "LESS_LIKE_THIS"
	ActionApplied       Action = "APPLIED"
	ActionSaved         Action = "SAVED"
)

// Opportunity status values mirror the status column in PostgreSQL.
const (
	StatusNew       = "NEW"
	StatusSent      = "SENT"
	StatusSaved     = "SAVED"
	StatusDismissed = "DISMISSED"
	StatusApplied   = "APPLIED"
)

// statusByAction maps the actions that move an opportunity's status. Actions
// absent from the map are recorded but leave the status untouched.
var statusByAction = map[Action]string{
	ActionLike:    StatusSaved,
	ActionDislike: StatusDismissed,
	ActionApplied: StatusApplied,
	ActionSaved:   StatusSaved,
}

// ParseAction converts a raw string to an Action, returning an error for
// unknown values.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionLike, ActionDislike, ActionIgnoreCompany, ActionIgnoreSender,
		ActionMoreLikeThis, ActionLessLikeThis, ActionApplied, ActionSaved:
		return a, nil
	}
	return "", fmt.Errorf("unknown feedback action %q", s)
}

// StatusFor returns the status an action moves an opportunity to, and whether
// the action moves status at all.
func StatusFor(a Action) (string, bool) {
	status, ok := statusByAction[a]
	return status, ok
}
