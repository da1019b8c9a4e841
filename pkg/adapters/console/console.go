// Package console runs the dialogue over a line-oriented terminal.
//
// Every line is one event: "!token" presses a button, "@file_id[:unique_id]"
// sends an image, anything else is text.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/formbot/internal/presentation/tui"
	"github.com/aretw0/formbot/pkg/domain"
)

// Dispatcher applies one event and waits for the reply. *runner.Runner implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, participantID string, ev domain.Event) (domain.Reply, error)
}

// Console reads events from In and writes rendered replies to Out.
type Console struct {
	In            io.Reader
	Out           io.Writer
	ParticipantID string
	Renderer      *tui.Renderer
	// Interactive prints a prompt before each line; set it when In is a terminal.
	Interactive bool
}

// ParseLine maps one input line to an event.
func ParseLine(line string) domain.Event {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, "!") && len(line) > 1:
		return domain.ButtonEvent(strings.TrimSpace(line[1:]))
	case strings.HasPrefix(line, "@") && len(line) > 1:
		fileID, uniqueID, _ := strings.Cut(strings.TrimSpace(line[1:]), ":")
		if uniqueID == "" {
			uniqueID = fileID
		}
		return domain.ImageEvent(domain.ImageVariant{FileID: fileID, UniqueID: uniqueID, Width: 1, Height: 1})
	}
	return domain.TextEvent(line)
}

// Run loops until EOF or ctx is done. Store faults are shown and the loop continues.
func (c *Console) Run(ctx context.Context, d Dispatcher) error {
	if c.Renderer == nil {
		c.Renderer = tui.NewPlainRenderer(c.Out)
	}
	scanner := bufio.NewScanner(c.In)

	for {
		if c.Interactive {
			fmt.Fprint(c.Out, "> ")
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		reply, err := d.Dispatch(ctx, c.ParticipantID, ParseLine(scanner.Text()))
		if err != nil {
			if errors.Is(err, domain.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(c.Out, ">>> error: %v\n", err)
		}
		if reply.Text != "" || reply.AttachPhoto != "" {
			fmt.Fprint(c.Out, c.Renderer.Reply(reply))
		}
	}
}
