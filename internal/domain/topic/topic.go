// Package topic defines the closed set of seminar topics and the single
// mapping table between short codes, canonical keys, and display names.
package topic

import (
	"strings"
)

// Topic is a supported marketing-seminar subject. The zero value is Unknown.
type Topic int

// Supported topics.
const (
	Unknown Topic = iota
	TaxesInRetirement
	EstatePlanning
	SocialSecurity
)

type entry struct {
	topic  Topic
	code   string
	key    string
	name   string
	legacy []string
}

// table is the only place topic identifiers are defined.
var table = []entry{
	{topic: TaxesInRetirement, code: "TIR", key: "taxes_in_retirement", name: "Taxes in Retirement", legacy: []string{"TAXES_IN_RETIREMENT_567"}},
	{topic: EstatePlanning, code: "EP", key: "estate_planning", name: "Estate Planning", legacy: []string{"ESTATE_PLANNING_567"}},
	{topic: SocialSecurity, code: "SS", key: "social_security", name: "Social Security", legacy: []string{"SOCIAL_SECURITY_567"}},
}

// lookup maps every accepted spelling (already folded by fold) to its topic.
var lookup = func() map[string]Topic {
	m := make(map[string]Topic, len(table)*5)
	for _, e := range table {
		m[fold(e.code)] = e.topic
		m[fold(e.key)] = e.topic
		m[fold(e.name)] = e.topic
		for _, l := range e.legacy {
			m[fold(l)] = e.topic
		}
	}
	return m
}()

// fold upper-cases s and collapses whitespace, hyphens and underscores into a
// single underscore so "Estate Planning", "estate-planning" and
// "ESTATE_PLANNING" compare equal.
func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		switch r {
		case ' ', '\t', '-', '_', '.', '/':
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Parse resolves a short code, canonical key, legacy identifier or display
// name to a Topic. Unknown values return an *InvalidTopicError.
func Parse(s string) (Topic, error) {
	if t, ok := lookup[fold(s)]; ok {
		return t, nil
	}
	return Unknown, &InvalidTopicError{Value: s}
}

// All returns the supported topics in table order.
func All() []Topic {
	out := make([]Topic, len(table))
	for i, e := range table {
		out[i] = e.topic
	}
	return out
}

func (t Topic) entry() (entry, bool) {
	for _, e := range table {
		if e.topic == t {
			return e, true
		}
	}
	return entry{}, false
}

// Code returns the short code, e.g. "TIR". Unknown returns "".
func (t Topic) Code() string {
	e, _ := t.entry()
	return e.code
}

// Key returns the canonical key, e.g. "taxes_in_retirement".
func (t Topic) Key() string {
	e, _ := t.entry()
	return e.key
}

// Name returns the human readable name.
func (t Topic) Name() string {
	e, ok := t.entry()
	if !ok {
		return "Unknown"
	}
	return e.name
}

// Valid reports whether t is one of the supported topics.
func (t Topic) Valid() bool {
	_, ok := t.entry()
	return ok
}

func (t Topic) String() string {
	if c := t.Code(); c != "" {
		return c
	}
	return "UNKNOWN"
}

// MarshalText encodes the topic as its short code.
func (t Topic) MarshalText() ([]byte, error) {
	return []byte(t.Code()), nil
}

// UnmarshalText accepts any spelling Parse accepts.
func (t *Topic) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
