// Package catalog holds every user-facing string of the dialogue.
//
// The built-in catalog is embedded from default.yaml. An override file can
// replace any subset of keys, which is how deployments translate the bot.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/aretw0/formbot/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Message keys.
const (
	MsgIntro           = "intro"
	MsgHelp            = "help"
	MsgNotUnderstood   = "not_understood"
	MsgNothingToCancel = "nothing_to_cancel"
	MsgCancelled       = "cancelled"
	MsgTryAgain        = "try_again"
	MsgInvalidInput    = "invalid_input"
	MsgNoProfile       = "no_profile"
	MsgCompleted       = "completed"
	MsgShowDataHint    = "showdata_hint"
)

// RequiredMessages lists the keys every catalog must define.
var RequiredMessages = []string{
	MsgIntro, MsgHelp, MsgNotUnderstood, MsgNothingToCancel, MsgCancelled,
	MsgTryAgain, MsgInvalidInput, MsgNoProfile, MsgCompleted, MsgShowDataHint,
}

// Catalog maps keys to display text.
type Catalog struct {
	Messages map[string]string       `yaml:"messages"`
	Prompts  map[domain.State]string `yaml:"prompts"`
	Rejects  map[domain.State]string `yaml:"rejects"`
	Buttons  map[string]string       `yaml:"buttons"`
	Labels   map[string]string       `yaml:"labels"`
	Summary  string                  `yaml:"summary"`

	summary *template.Template
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load returns the default catalog with the file at path merged on top.
// An empty path returns the default.
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	base.merge(&override)
	if err := base.compile(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return base, nil
}

func (c *Catalog) merge(o *Catalog) {
	mergeInto(&c.Messages, o.Messages)
	mergeInto(&c.Prompts, o.Prompts)
	mergeInto(&c.Rejects, o.Rejects)
	mergeInto(&c.Buttons, o.Buttons)
	mergeInto(&c.Labels, o.Labels)
	if strings.TrimSpace(o.Summary) != "" {
		c.Summary = o.Summary
	}
}

func mergeInto[K comparable](dst *map[K]string, src map[K]string) {
	if *dst == nil {
		*dst = make(map[K]string, len(src))
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}

func (c *Catalog) compile() error {
	tmpl, err := template.New("summary").
		Funcs(template.FuncMap{"label": c.label}).
		Option("missingkey=error").
		Parse(c.Summary)
	if err != nil {
		return fmt.Errorf("invalid summary template: %w", err)
	}
	c.summary = tmpl
	return nil
}

// Missing returns the required message keys this catalog lacks.
func (c *Catalog) Missing() []string {
	var missing []string
	for _, k := range RequiredMessages {
		if c.Messages[k] == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Text returns a message, or the key itself when undefined.
func (c *Catalog) Text(key string) string {
	if s, ok := c.Messages[key]; ok {
		return s
	}
	return key
}

// Prompt returns the question asked on entering state.
func (c *Catalog) Prompt(state domain.State) string {
	return c.Prompts[state]
}

// Reject returns the re-prompt sent when an answer in state is not accepted.
func (c *Catalog) Reject(state domain.State) string {
	return c.Rejects[state]
}

// Button returns the label of a button token, falling back to the token.
func (c *Catalog) Button(token string) string {
	if s, ok := c.Buttons[token]; ok {
		return s
	}
	return token
}

func (c *Catalog) label(v any) string {
	key := fmt.Sprint(v)
	if s, ok := c.Labels[key]; ok {
		return s
	}
	return key
}

// Render formats a completed profile for /showdata.
func (c *Catalog) Render(p domain.Profile) (string, error) {
	var buf bytes.Buffer
	if err := c.summary.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.String(), nil
}
