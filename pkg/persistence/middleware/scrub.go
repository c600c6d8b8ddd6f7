package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// scrubMask replaces history entries whose state name matches a pattern.
const scrubMask = "***"

type scrubMiddleware struct {
	next     ports.ConversationStore
	patterns []*regexp.Regexp
}

// NewScrubMiddleware creates a middleware that masks visit history
// entries matching the patterns before a snapshot is saved. The trail
// keeps its length; only the names are hidden. The Current field is
// never touched: restoring a session needs it intact.
func NewScrubMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		compiled, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid scrub pattern %q: %w", p, err)
		}
		patterns[i] = compiled
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &scrubMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *scrubMiddleware) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	// Clone to avoid side effects on the snapshot the engine still holds.
	cloned := conv.Clone()
	for i, state := range cloned.History {
		for _, p := range m.patterns {
			if p.MatchString(state) {
				cloned.History[i] = scrubMask
				break
			}
		}
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *scrubMiddleware) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *scrubMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *scrubMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
