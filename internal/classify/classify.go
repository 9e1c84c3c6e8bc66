// Package classify decides whether a chat message is a candidate listing or
// conversational noise.
//
// A listing is recognised by the absence of conversational markers rather than
// the presence of listing markers. The filter favours recall: a genuine listing
// that happens to contain a question mark is discarded.
package classify

import "strings"

// Verdict is the outcome of classifying a message.
type Verdict int

const (
	Reject Verdict = iota
	Accept
)

func (v Verdict) String() string {
	if v == Accept {
		return "accept"
	}
	return "reject"
}

// Classifier holds the lowercase reject phrase set. It is immutable and safe
// for concurrent use; every source adapter shares one instance.
type Classifier struct {
	phrases []string
}

// New builds a classifier from a reject phrase list. Phrases are matched as
// case-insensitive substrings; blank phrases are ignored.
func New(phrases []string) *Classifier {
	c := &Classifier{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			c.phrases = append(c.phrases, p)
		}
	}
	return c
}

// Classify returns Accept when text is non-blank and contains none of the
// reject phrases.
func (c *Classifier) Classify(text string) Verdict {
	v, _ := c.Explain(text)
	return v
}

// Explain is Classify plus the reason for a rejection: "empty" for blank input
// or the first matching phrase.
func (c *Classifier) Explain(text string) (Verdict, string) {
	if strings.TrimSpace(text) == "" {
		return Reject, "empty"
	}
	lower := strings.ToLower(text)
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return Reject, p
		}
	}
	return Accept, ""
}

// IsListing is shorthand for Classify(text) == Accept.
func (c *Classifier) IsListing(text string) bool {
	return c.Classify(text) == Accept
}
