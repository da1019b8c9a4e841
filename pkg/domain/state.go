package domain

import "time"

// State names a step of the dialogue.
type State string

const (
	StateNone           State = "NONE" // No dialogue in progress
	StateAwaitName      State = "AWAIT_NAME"
	StateAwaitAge       State = "AWAIT_AGE"
	StateAwaitGender    State = "AWAIT_GENDER"
	StateAwaitPhoto     State = "AWAIT_PHOTO"
	StateAwaitEducation State = "AWAIT_EDUCATION"
	StateAwaitNews      State = "AWAIT_NEWS"
)

// Normalize maps the zero value to StateNone.
func (s State) Normalize() State {
	if s == "" {
		return StateNone
	}
	return s
}

// Active reports whether a dialogue is in progress.
func (s State) Active() bool {
	return s.Normalize() != StateNone
}

func (s State) String() string {
	return string(s.Normalize())
}

// SessionVersion is the layout version written by this build.
const SessionVersion = 1

// Session is the per-participant progress through the dialogue.
type Session struct {
	// ParticipantID identifies the remote user.
	ParticipantID string `json:"participant_id"`

	// State is the step the participant is currently answering.
	State State `json:"state"`

	// Fields holds the answers collected so far, keyed by the Field* constants.
	// It is empty whenever State is StateNone.
	Fields map[string]any `json:"fields,omitempty"`

	// Version is the persisted layout version.
	Version int `json:"version"`

	// UpdatedAt is stamped by the engine on every save and drives idle expiry.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns the idle session for a participant.
func NewSession(participantID string) *Session {
	return &Session{
		ParticipantID: participantID,
		State:         StateNone,
		Fields:        make(map[string]any),
		Version:       SessionVersion,
	}
}

// Clone returns a copy whose Fields map can be mutated independently.
func (s *Session) Clone() *Session {
	c := *s
	c.Fields = make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		c.Fields[k] = v
	}
	return &c
}

// Normalize restores the invariant that an idle session carries no fields.
func (s *Session) Normalize() *Session {
	s.State = s.State.Normalize()
	if s.Fields == nil || !s.State.Active() {
		s.Fields = make(map[string]any)
	}
	if s.Version == 0 {
		s.Version = SessionVersion
	}
	return s
}
