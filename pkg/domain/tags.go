package domain

import "sort"

// TagCount is a multiset of tags extracted from a single message.
// The zero value is usable for reads; use Add to build one up.
type TagCount map[string]int

// Has reports whether the tag was matched at least once.
func (tc TagCount) Has(tag string) bool {
	return tc[tag] > 0
}

// Count returns how many table entries contributed the tag.
func (tc TagCount) Count(tag string) int {
	return tc[tag]
}

// Add increments the count for each given tag by one.
func (tc TagCount) Add(tags ...string) {
	for _, tag := range tags {
		tc[tag]++
	}
}

// Tags returns the matched tags in sorted order.
func (tc TagCount) Tags() []string {
	tags := make([]string, 0, len(tc))
	for tag := range tc {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Total returns the sum of all counts.
func (tc TagCount) Total() int {
	total := 0
	for _, n := range tc {
		total += n
	}
	return total
}

// TagTable maps a literal phrase to the tags it signals.
// Values are always normalized to a slice; build one with NewTagTable.
type TagTable map[string][]string

// NewTagTable normalizes a raw phrase -> tag(s) mapping. A value may be a
// single string, a []string, or a []any of strings. Anything else fails
// with a *TagValueError.
func NewTagTable(raw map[string]any) (TagTable, error) {
	table := make(TagTable, len(raw))
	for phrase, value := range raw {
		tags, err := normalizeTags(phrase, value)
		if err != nil {
			return nil, err
		}
		table[phrase] = tags
	}
	return table, nil
}

func normalizeTags(phrase string, value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		tags := make([]string, len(v))
		copy(tags, v)
		return tags, nil
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &TagValueError{Phrase: phrase, Value: value}
			}
			tags = append(tags, s)
		}
		return tags, nil
	default:
		return nil, &TagValueError{Phrase: phrase, Value: value}
	}
}

// Phrases returns the declared phrases in sorted order.
func (t TagTable) Phrases() []string {
	phrases := make([]string, 0, len(t))
	for phrase := range t {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)
	return phrases
}

// TagSet returns the distinct tags declared anywhere in the table, sorted.
func (t TagTable) TagSet() []string {
	seen := make(map[string]bool)
	for _, tags := range t {
		for _, tag := range tags {
			seen[tag] = true
		}
	}
	set := make([]string, 0, len(seen))
	for tag := range seen {
		set = append(set, tag)
	}
	sort.Strings(set)
	return set
}
