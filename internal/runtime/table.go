package runtime

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/validator"
	"github.com/aretw0/formbot/pkg/domain"
)

// EntryState is where /fillform puts an idle participant.
const EntryState = domain.StateAwaitName

// Presentation controls how the reply to an accepted answer is shown.
type Presentation int

const (
	// PresentNew sends a new message.
	PresentNew Presentation = iota
	// PresentEdit rewrites the message whose button was pressed.
	PresentEdit
	// PresentReplace deletes that message and sends a new one.
	PresentReplace
)

// Step is one row of the transition table.
type Step struct {
	// Accepts is the only event kind this step validates. Anything else is rejected.
	Accepts domain.EventKind

	// Validate turns an accepted event into the fields it contributes.
	Validate func(domain.Event) (map[string]any, error)

	// Next is the state entered on success. domain.StateNone completes the dialogue.
	Next domain.State

	// Buttons are the token rows offered together with this step's prompt.
	Buttons [][]string

	// Present is how the reply to a successful answer in this step is shown.
	Present Presentation
}

// Table maps each waiting state to its step. It is never mutated after startup.
type Table map[domain.State]Step

// DefaultTable is the six-question form.
func DefaultTable() Table {
	return Table{
		domain.StateAwaitName: {
			Accepts: domain.EventText,
			Validate: func(ev domain.Event) (map[string]any, error) {
				name, err := validator.Name(ev.Text)
				return map[string]any{domain.FieldName: name}, err
			},
			Next: domain.StateAwaitAge,
		},
		domain.StateAwaitAge: {
			Accepts: domain.EventText,
			Validate: func(ev domain.Event) (map[string]any, error) {
				age, err := validator.Age(ev.Text)
				return map[string]any{domain.FieldAge: age}, err
			},
			Next: domain.StateAwaitGender,
		},
		domain.StateAwaitGender: {
			Accepts: domain.EventButton,
			Validate: func(ev domain.Event) (map[string]any, error) {
				g, err := validator.Gender(ev.Token)
				return map[string]any{domain.FieldGender: string(g)}, err
			},
			Next: domain.StateAwaitPhoto,
			Buttons: [][]string{
				{validator.TokenFemale, validator.TokenMale},
				{validator.TokenUnspecified},
			},
			Present: PresentReplace,
		},
		domain.StateAwaitPhoto: {
			Accepts: domain.EventImage,
			Validate: func(ev domain.Event) (map[string]any, error) {
				p, err := validator.Photo(ev.Images)
				return map[string]any{
					domain.FieldPhotoID:       p.FileID,
					domain.FieldPhotoUniqueID: p.UniqueID,
				}, err
			},
			Next: domain.StateAwaitEducation,
		},
		domain.StateAwaitEducation: {
			Accepts: domain.EventButton,
			Validate: func(ev domain.Event) (map[string]any, error) {
				e, err := validator.Education(ev.Token)
				return map[string]any{domain.FieldEducation: string(e)}, err
			},
			Next: domain.StateAwaitNews,
			Buttons: [][]string{
				{validator.TokenHighEducation, validator.TokenSecondaryEducation},
				{validator.TokenNoEducation},
			},
			Present: PresentEdit,
		},
		domain.StateAwaitNews: {
			Accepts: domain.EventButton,
			Validate: func(ev domain.Event) (map[string]any, error) {
				yes, err := validator.News(ev.Token)
				return map[string]any{domain.FieldWantsNews: yes}, err
			},
			Next: domain.StateNone,
			Buttons: [][]string{
				{validator.TokenAgreed, validator.TokenDeclined},
			},
			Present: PresentEdit,
		},
	}
}

// TableError lists every problem found by ValidateTable.
type TableError struct {
	Problems []string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("found %d errors:\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// ValidateTable crawls the table from entry and checks that every step is
// reachable, the chain ends in domain.StateNone without looping, every button
// token is accepted by its step, and the catalog has text for all of it.
func ValidateTable(table Table, entry domain.State, cat *catalog.Catalog) error {
	var problems []string

	for _, key := range cat.Missing() {
		problems = append(problems, fmt.Sprintf("catalog is missing message '%s'", key))
	}

	visited := make(map[domain.State]bool)
	current := entry
	for current != domain.StateNone {
		if visited[current] {
			problems = append(problems, fmt.Sprintf("cycle detected at '%s'", current))
			break
		}
		visited[current] = true

		step, ok := table[current]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing step: '%s'", current))
			break
		}
		if step.Validate == nil {
			problems = append(problems, fmt.Sprintf("step '%s' has no validator", current))
		}
		if cat.Prompt(current) == "" {
			problems = append(problems, fmt.Sprintf("catalog has no prompt for '%s'", current))
		}
		if cat.Reject(current) == "" {
			problems = append(problems, fmt.Sprintf("catalog has no reject text for '%s'", current))
		}
		for _, row := range step.Buttons {
			for _, token := range row {
				if step.Validate != nil {
					if _, err := step.Validate(domain.ButtonEvent(token)); err != nil {
						problems = append(problems, fmt.Sprintf("step '%s' offers button '%s' it rejects", current, token))
					}
				}
				if _, ok := cat.Buttons[token]; !ok {
					problems = append(problems, fmt.Sprintf("catalog has no label for button '%s'", token))
				}
			}
		}
		if len(step.Buttons) > 0 && step.Accepts != domain.EventButton {
			problems = append(problems, fmt.Sprintf("step '%s' offers buttons but accepts %s", current, step.Accepts))
		}
		current = step.Next
	}

	var unreachable []string
	for state := range table {
		if !visited[state] {
			unreachable = append(unreachable, string(state))
		}
	}
	slices.Sort(unreachable)
	for _, s := range unreachable {
		problems = append(problems, fmt.Sprintf("unreachable step: '%s'", s))
	}

	if len(problems) > 0 {
		return &TableError{Problems: problems}
	}
	return nil
}
