package document

import (
	"slices"
	"strings"
)

type Kind string

const (
	KindSlide   Kind = "slide"
	KindTest    Kind = "test"
	KindUnknown Kind = "unknown"
)

// ParseKind maps a raw classifier reply to a Kind. Anything other than an
// exact "slide" or "test" after trimming and lowercasing is unknown.
func ParseKind(raw string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindSlide:
		return KindSlide
	case KindTest:
		return KindTest
	default:
		return KindUnknown
	}
}

type Document struct {
	Name     string `json:"name"`
	Text     string `json:"-"`
	Kind     Kind   `json:"kind"`
	Location string `json:"location,omitempty"`
}

// Corpus is the grounding material of a session. Both queues are append-only
// and keep duplicates.
type Corpus struct {
	Slides []string `json:"slides"`
	Exams  []string `json:"exams"`
}

// Add routes a document into the matching queue. Unknown documents are rejected.
func (c *Corpus) Add(doc Document) bool {
	switch doc.Kind {
	case KindSlide:
		c.Slides = append(c.Slides, doc.Text)
	case KindTest:
		c.Exams = append(c.Exams, doc.Text)
	default:
		return false
	}
	return true
}

// Complete reports whether both slides and exams are present.
func (c *Corpus) Complete() bool {
	return len(c.Slides) > 0 && len(c.Exams) > 0
}

func (c *Corpus) Clone() Corpus {
	return Corpus{
		Slides: slices.Clone(c.Slides),
		Exams:  slices.Clone(c.Exams),
	}
}
