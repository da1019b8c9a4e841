package middleware

import (
	"context"
	"errors"
	"regexp"

	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
)

// ErrReadOnly is returned by writes through a redacting view.
var ErrReadOnly = errors.New("redacted session view is read-only")

// DefaultPIIPatterns match the answers that identify a person.
var DefaultPIIPatterns = []string{`^name$`, `^photo`}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-only view that masks the values of fields
// whose key matches one of the patterns. It is meant for operator tooling:
// writing a masked session back would destroy the answers.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return withLister(&piiMiddleware{next: next, patterns: patterns}, next)
	}
}

func (m *piiMiddleware) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	sess, err := m.next.Load(ctx, participantID)
	if err != nil {
		return nil, err
	}
	masked := sess.Clone()
	maskMap(masked.Fields, m.patterns)
	return masked, nil
}

func (m *piiMiddleware) Save(context.Context, string, *domain.Session) error {
	return ErrReadOnly
}

func (m *piiMiddleware) Clear(context.Context, string) error {
	return ErrReadOnly
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
