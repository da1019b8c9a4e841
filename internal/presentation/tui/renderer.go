package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/formbot/pkg/domain"
)

// Renderer turns replies into terminal text.
type Renderer struct {
	markdown func(string) (string, error)
	out      *termenv.Output
}

// NewRenderer renders reply text as markdown using glamour, with colored
// button hints. It uses a style matching the terminal background.
func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{out: termenv.NewOutput(w)}
	if g, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	); err == nil {
		r.markdown = g.Render
	}
	return r
}

// NewPlainRenderer renders without styling, for pipes and tests.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{out: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))}
}

// Reply renders one reply, buttons last.
func (r *Renderer) Reply(reply domain.Reply) string {
	var sb strings.Builder

	if reply.EditPrevious || reply.DeletePrevious {
		sb.WriteString(r.out.String("(replaces the previous message)").Faint().String())
		sb.WriteString("\n")
	}
	if reply.AttachPhoto != "" {
		sb.WriteString(r.out.String("[photo " + reply.AttachPhoto + "]").Italic().String())
		sb.WriteString("\n")
	}

	text := reply.Text
	if r.markdown != nil {
		if rendered, err := r.markdown(text); err == nil {
			text = strings.Trim(rendered, "\n")
		}
	}
	sb.WriteString(text)
	sb.WriteString("\n")

	for _, row := range reply.Buttons {
		hints := make([]string, 0, len(row))
		for _, b := range row {
			hint := fmt.Sprintf("[%s] !%s", b.Label, b.Token)
			hints = append(hints, r.out.String(hint).Foreground(r.out.Color("#a78bfa")).String())
		}
		sb.WriteString("  ")
		sb.WriteString(strings.Join(hints, "  "))
		sb.WriteString("\n")
	}
	return sb.String()
}
