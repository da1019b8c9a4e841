package domain

import (
	"math"
	"strings"
)

// EventKind classifies inbound events.
type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
	EventImage  EventKind = "image"
)

// ImageVariant is one resolution of an attached image.
type ImageVariant struct {
	FileID   string `json:"file_id"`
	UniqueID string `json:"unique_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int    `json:"file_size,omitempty"`
}

// Resolution is the pixel count of the variant, saturating at math.MaxInt64.
// It is 0 when either dimension is not positive.
func (v ImageVariant) Resolution() int64 {
	w, h := int64(v.Width), int64(v.Height)
	if w <= 0 || h <= 0 {
		return 0
	}
	if w > math.MaxInt64/h {
		return math.MaxInt64
	}
	return w * h
}

// Event is one inbound message from a participant, already stripped of transport detail.
type Event struct {
	Kind   EventKind      `json:"kind"`
	Text   string         `json:"text,omitempty"`
	Token  string         `json:"token,omitempty"`
	Images []ImageVariant `json:"images,omitempty"`
}

// TextEvent builds a free-text message, including slash commands.
func TextEvent(text string) Event { return Event{Kind: EventText, Text: text} }

// ButtonEvent builds an inline button press carrying its callback token.
func ButtonEvent(token string) Event { return Event{Kind: EventButton, Token: token} }

// ImageEvent builds a photo message from every size the platform offers.
func ImageEvent(images ...ImageVariant) Event { return Event{Kind: EventImage, Images: images} }

// Command returns the slash command carried by a text event, without the
// leading slash or a trailing @botname. It returns "" for anything else.
func (e Event) Command() string {
	if e.Kind != EventText {
		return ""
	}
	text := strings.TrimSpace(e.Text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text[1:])
	if len(cmd) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(cmd[0], "@")
	return strings.ToLower(name)
}
