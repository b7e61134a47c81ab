// Package classify tags inbound message text by keyword membership.
package classify

import (
	"strings"
)

// Category is a message tag.
type Category string

const (
	// CategorySensitive marks intimate or explicit content gated behind consent.
	CategorySensitive Category = "sensitive"
	// CategoryHostile marks insults and abuse.
	CategoryHostile Category = "hostile"
	// CategoryAdvice marks suggestions the sender makes to the persona.
	CategoryAdvice Category = "advice"
)

// Table maps each category to the lower-case substrings that trigger it.
type Table map[Category][]string

// DefaultTable is the canonical keyword set.
var DefaultTable = Table{
	CategorySensitive: {
		"sex", "fuck", "dick", "cock", "pussy", "boobs", "ass", "damn", "horny",
		"sexy", "seduce", "strip", "naked", "moan", "orgasm", "jerk", "cum",
		"suck", "kiss me", "make out", "cuddle", "romantic",
	},
	CategoryHostile: {
		"fuck", "shit", "bastard", "asshole", "bitch", "chutiya", "gaandu",
		"saala", "madarchod", "behenchod", "randwe", "randi", "besharam",
		"bewakoof", "loser",
	},
	CategoryAdvice: {
		"you should", "try to", "maybe you", "consider", "i think you",
		"best for you", "aapke liye",
	},
}

// Tags holds the independent classification flags for one message.
type Tags struct {
	Sensitive bool
	Hostile   bool
	Advice    bool
}

// Has reports whether the tag for c is set.
func (t Tags) Has(c Category) bool {
	switch c {
	case CategorySensitive:
		return t.Sensitive
	case CategoryHostile:
		return t.Hostile
	case CategoryAdvice:
		return t.Advice
	default:
		return false
	}
}

// None reports whether no tag is set.
func (t Tags) None() bool {
	return !t.Sensitive && !t.Hostile && !t.Advice
}

// Classifier is a pure keyword classifier. The zero value matches nothing.
type Classifier struct {
	table Table
}

// New builds a classifier over table. Keywords are lower-cased and blank
// entries dropped; the table is copied so later edits do not leak in.
func New(table Table) *Classifier {
	normalized := make(Table, len(table))
	for category, keywords := range table {
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			normalized[category] = append(normalized[category], kw)
		}
	}
	return &Classifier{table: normalized}
}

// Default returns a classifier over DefaultTable.
func Default() *Classifier {
	return New(DefaultTable)
}

// Classify tags text. Matching is case-insensitive substring membership;
// empty or whitespace-only text yields no tags.
func (c *Classifier) Classify(text string) Tags {
	if c == nil || strings.TrimSpace(text) == "" {
		return Tags{}
	}

	lower := strings.ToLower(text)
	return Tags{
		Sensitive: c.matches(CategorySensitive, lower),
		Hostile:   c.matches(CategoryHostile, lower),
		Advice:    c.matches(CategoryAdvice, lower),
	}
}

// Matches reports whether text falls in category.
func (c *Classifier) Matches(category Category, text string) bool {
	if c == nil || strings.TrimSpace(text) == "" {
		return false
	}
	return c.matches(category, strings.ToLower(text))
}

func (c *Classifier) matches(category Category, lower string) bool {
	for _, kw := range c.table[category] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
