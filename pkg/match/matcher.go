// Package match compiles a tag table into a reusable message matcher.
//
// Phrases match case-insensitively and literally. A word boundary is
// required at a phrase edge only when that edge is a word character, so
// "hi" does not fire inside "this" while "whats up?" still matches with
// its trailing punctuation.
package match

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/aretw0/parley/pkg/domain"
)

type entry struct {
	phrase  string
	tags    []string
	pattern *regexp.Regexp
}

// Matcher tags messages against a compiled table. It is immutable after
// New and safe for concurrent use by any number of engines.
type Matcher struct {
	entries []entry
}

// New compiles every phrase of the table. Compilation happens once;
// tagging a message allocates only the result.
func New(table domain.TagTable) (*Matcher, error) {
	entries := make([]entry, 0, len(table))
	for _, phrase := range table.Phrases() {
		if phrase == "" {
			return nil, fmt.Errorf("tag table contains an empty phrase")
		}
		pattern, err := compilePhrase(phrase)
		if err != nil {
			return nil, fmt.Errorf("compiling phrase %q: %w", phrase, err)
		}
		entries = append(entries, entry{
			phrase:  phrase,
			tags:    table[phrase],
			pattern: pattern,
		})
	}
	return &Matcher{entries: entries}, nil
}

// compilePhrase quotes the phrase and anchors it with \b only on edges
// that are word characters. Punctuation edges carry no boundary of their
// own, so anchoring them would make the phrase unmatchable at line ends.
func compilePhrase(phrase string) (*regexp.Regexp, error) {
	pattern := regexp.QuoteMeta(phrase)
	if first, _ := utf8.DecodeRuneInString(phrase); isWordRune(first) {
		pattern = `\b` + pattern
	}
	if last, _ := utf8.DecodeLastRuneInString(phrase); isWordRune(last) {
		pattern += `\b`
	}
	return regexp.Compile(`(?i)` + pattern)
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}

// Tag scans the message against every table entry. An entry that occurs
// in the message contributes +1 to each of its tags; repeated occurrences
// of the same phrase still count once. Distinct phrases sharing a tag
// accumulate additively.
func (m *Matcher) Tag(message string) domain.TagCount {
	tags := make(domain.TagCount)
	for _, e := range m.entries {
		if e.pattern.MatchString(message) {
			tags.Add(e.tags...)
		}
	}
	return tags
}

// Phrases returns the compiled phrases in sorted order.
func (m *Matcher) Phrases() []string {
	phrases := make([]string, len(m.entries))
	for i, e := range m.entries {
		phrases[i] = e.phrase
	}
	sort.Strings(phrases)
	return phrases
}
