package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageVariant_Resolution(t *testing.T) {
	tests := []struct {
		name string
		v    ImageVariant
		want int64
	}{
		{"regular", ImageVariant{Width: 1280, Height: 720}, 921600},
		{"zero width", ImageVariant{Width: 0, Height: 720}, 0},
		{"negative", ImageVariant{Width: -10, Height: -10}, 0},
		{"saturates", ImageVariant{Width: math.MaxInt, Height: 4}, math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Resolution())
		})
	}
}

func TestEventConstructors(t *testing.T) {
	assert.Equal(t, Event{Kind: EventText, Text: "/start"}, TextEvent("/start"))
	assert.Equal(t, "start", TextEvent("/start").Command())
	assert.Equal(t, Event{Kind: EventButton, Token: "agreed"}, ButtonEvent("agreed"))
	assert.Len(t, ImageEvent(ImageVariant{FileID: "a"}, ImageVariant{FileID: "b"}).Images, 2)
}
