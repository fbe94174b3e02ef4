// Package session keeps per-user menu state: the chain in focus, the message
// the bot may edit in place and whether free text is expected as an argument.
package session

import (
	"errors"
	"time"
)

// ErrNoChain is returned by transitions that only make sense with a chain selected.
var ErrNoChain = errors.New("session: no chain selected")

// PendingInput marks how the next free-text message from a user is interpreted.
type PendingInput int

const (
	// PendingNone means free text is parsed as a command or a prefixed query.
	PendingNone PendingInput = iota
	// PendingPoolID means a bare pool identifier is expected.
	PendingPoolID
)

// String implements fmt.Stringer for logging.
func (p PendingInput) String() string {
	switch p {
	case PendingNone:
		return "none"
	case PendingPoolID:
		return "awaiting_pool_id"
	default:
		return "unknown"
	}
}

// MessageRef identifies an outbound message. Chat and message IDs are only
// meaningful together, so they travel as one value.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Session is a snapshot of one user's state.
type Session struct {
	Chain   string
	Target  *MessageRef
	Shown   string
	Pending PendingInput

	LastActivity time.Time
}

// HasChain reports whether a chain is in focus.
func (s Session) HasChain() bool {
	return s.Chain != ""
}

// Valid reports whether the session satisfies its invariants.
func (s Session) Valid() bool {
	if s.Pending != PendingNone && !s.HasChain() {
		return false
	}
	if s.Target != nil && (s.Target.ChatID == 0 || s.Target.MessageID == 0) {
		return false
	}
	return true
}

func (s Session) clone() Session {
	out := s
	if s.Target != nil {
		ref := *s.Target
		out.Target = &ref
	}
	return out
}

// Patch is a partial update merged into a session. Nil fields are left untouched.
type Patch struct {
	Chain   *string
	Target  *MessageRef
	Shown   *string
	Pending *PendingInput
}

func (p Patch) apply(s *Session) {
	if p.Chain != nil {
		s.Chain = *p.Chain
	}
	if p.Target != nil {
		ref := *p.Target
		s.Target = &ref
	}
	if p.Shown != nil {
		s.Shown = *p.Shown
	}
	if p.Pending != nil {
		s.Pending = *p.Pending
	}
}
