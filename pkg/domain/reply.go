package domain

// Button is one inline choice offered to the participant.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is what the transport should show in response to an event.
type Reply struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`

	// EditPrevious asks the transport to replace the message that carried the
	// pressed button instead of sending a new one.
	EditPrevious bool `json:"edit_previous,omitempty"`

	// DeletePrevious asks the transport to remove that message before sending.
	DeletePrevious bool `json:"delete_previous,omitempty"`

	// AttachPhoto, when set, is a platform file id sent with Text as caption.
	AttachPhoto string `json:"attach_photo,omitempty"`
}
