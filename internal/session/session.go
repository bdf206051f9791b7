package session

import "time"

// State is a named stage of the intake funnel.
type State string

const (
	StateInitial            State = "INITIAL"
	StateAwaitingResponse   State = "AWAITING_RESPONSE"
	StateAwaitingName       State = "AWAITING_NAME"
	StateAwaitingEmail      State = "AWAITING_EMAIL"
	StateAwaitingExperience State = "AWAITING_EXPERIENCE"

	// StateUnreadable marks a stored record that could not be decoded. It is
	// outside the funnel, so the engine resets it like any corrupt state.
	StateUnreadable State = "UNREADABLE"
)

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool {
	switch s {
	case StateInitial, StateAwaitingResponse, StateAwaitingName, StateAwaitingEmail, StateAwaitingExperience:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }

// Context holds the fields collected so far. Nil means not yet collected.
type Context struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Experience *string `json:"experience,omitempty"`
}

// Clone returns a deep copy.
func (c Context) Clone() Context {
	return Context{
		Name:       cloneString(c.Name),
		Email:      cloneString(c.Email),
		Experience: cloneString(c.Experience),
	}
}

// Session is the conversation record for one user identifier.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a fresh session in the initial state.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		State:     StateInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Context = s.Context.Clone()
	return &cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
