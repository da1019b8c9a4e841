package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/config"
	"github.com/aretw0/formbot/internal/presentation/graph"
	"github.com/aretw0/formbot/internal/runtime"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/persistence/middleware"
	"github.com/aretw0/formbot/pkg/session"
)

// ListSessions writes one active participant id per line, sorted.
func ListSessions(ctx context.Context, stack *Stack, w io.Writer) error {
	ids, err := stack.Manager().List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		printSystemMessage(w, "No active sessions.")
		return nil
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// InspectOptions selects how a session is shown.
type InspectOptions struct {
	// Redact masks the name and photo answers.
	Redact bool
	// Graph prints the transition diagram with the current state highlighted.
	Graph bool
}

// InspectSession prints the stored session as indented JSON.
func InspectSession(ctx context.Context, stack *Stack, id string, opts InspectOptions, w io.Writer) error {
	store := stack.Sessions
	if opts.Redact {
		store = middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(store)
	}
	sess, err := session.NewManager(store, stack.managerOptions()...).Load(ctx, id)
	if err != nil {
		return err
	}
	if !sess.State.Active() {
		printSystemMessage(w, "Participant %s has no active session.", id)
		return nil
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))

	if opts.Graph {
		fmt.Fprintln(w)
		fmt.Fprint(w, graph.GenerateMermaid(runtime.DefaultTable(), runtime.EntryState, &graph.Overlay{Current: sess.State}))
	}
	return nil
}

// RemoveSession drops the stored session under the participant lock, so a
// replica mid-answer finishes first. The profile is kept.
func RemoveSession(ctx context.Context, stack *Stack, id string, w io.Writer) error {
	if err := stack.Manager().Clear(ctx, id); err != nil {
		return err
	}
	printSystemMessage(w, "Session %s removed.", id)
	return nil
}

// ShowProfile prints the completed profile with the summary template, or as JSON.
func ShowProfile(ctx context.Context, cfg *config.Config, stack *Stack, id string, asJSON bool, w io.Writer) error {
	profile, err := stack.Profiles.Get(ctx, id)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return fmt.Errorf("participant %s has no completed profile: %w", id, err)
	}
	if err != nil {
		return err
	}
	if asJSON {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	cat, err := catalog.Load(cfg.PromptsFile)
	if err != nil {
		return err
	}
	text, err := cat.Render(*profile)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, text)
	return nil
}

// PrintGraph writes the transition table as a Mermaid state diagram.
func PrintGraph(w io.Writer) {
	fmt.Fprint(w, graph.GenerateMermaid(runtime.DefaultTable(), runtime.EntryState, nil))
}
