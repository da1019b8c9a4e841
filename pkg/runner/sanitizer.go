package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/formbot/pkg/domain"
)

// DefaultMaxInputSize caps text and tokens at 4 KiB unless WithMaxInputSize says otherwise.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8      = errors.New("input contains invalid UTF-8 sequences")
	ErrControlCharacter = errors.New("input contains control characters")
)

// Sanitize rejects oversized or malformed strings and strings carrying control
// characters other than newline, tab and carriage return. Nothing is truncated
// or stripped, so a validator only ever sees what the participant typed.
// A limit <= 0 disables the size check.
func Sanitize(input string, limit int) (string, error) {
	if limit > 0 && len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if i := strings.IndexFunc(input, unsafeControl); i >= 0 {
		r, _ := utf8.DecodeRuneInString(input[i:])
		return "", fmt.Errorf("%w: %U at byte %d", ErrControlCharacter, r, i)
	}
	return input, nil
}

// SanitizeEvent cleans every participant-controlled string in ev: the text,
// the button token and the image ids.
func SanitizeEvent(ev domain.Event, limit int) (domain.Event, error) {
	var err error
	if ev.Text, err = Sanitize(ev.Text, limit); err != nil {
		return ev, fmt.Errorf("text: %w", err)
	}
	if ev.Token, err = Sanitize(ev.Token, limit); err != nil {
		return ev, fmt.Errorf("token: %w", err)
	}
	if len(ev.Images) == 0 {
		return ev, nil
	}

	images := make([]domain.ImageVariant, len(ev.Images))
	for i, img := range ev.Images {
		if img.FileID, err = Sanitize(img.FileID, limit); err != nil {
			return ev, fmt.Errorf("image %d: %w", i, err)
		}
		if img.UniqueID, err = Sanitize(img.UniqueID, limit); err != nil {
			return ev, fmt.Errorf("image %d: %w", i, err)
		}
		images[i] = img
	}
	ev.Images = images
	return ev, nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
