// Package keywords counts a fixed word list in fetched pages.
package keywords

import (
	"bytes"
	"unicode"

	"golang.org/x/text/cases"
)

// Count is the number of times Word occurs as a whole token
type Count struct {
	Word  string
	Count int
}

// Report is the keyword breakdown of one fetched page
type Report struct {
	Page   int64
	URL    string
	Counts []Count
}

// Total returns the sum of all counts in the report
func (r Report) Total() int {
	total := 0
	for _, c := range r.Counts {
		total += c.Count
	}
	return total
}

// Counter matches whole tokens case-insensitively. Token boundaries are
// whitespace, punctuation, symbols and the ends of the body, so "data" is
// counted in "<b>data</b>" and "data-driven" but not in "database".
type Counter struct {
	words []string
	index map[string]int
}

// NewCounter builds a counter for words; duplicates (after case folding)
// are reported once under their first spelling.
func NewCounter(words []string) *Counter {
	fold := cases.Fold()
	c := &Counter{index: make(map[string]int, len(words))}
	for _, w := range words {
		key := fold.String(w)
		if key == "" {
			continue
		}
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = len(c.words)
		c.words = append(c.words, w)
	}
	return c
}

// Words returns the configured word list
func (c *Counter) Words() []string {
	return append([]string(nil), c.words...)
}

// Analyze counts every configured word in body. Safe for concurrent use.
func (c *Counter) Analyze(body []byte, page int64, url string) Report {
	counts := make([]Count, len(c.words))
	for i, w := range c.words {
		counts[i].Word = w
	}

	if len(c.words) > 0 {
		// Casers keep state between calls and must not be shared
		fold := cases.Fold()
		for _, tok := range bytes.FieldsFunc(body, isBoundary) {
			if i, ok := c.index[fold.String(string(tok))]; ok {
				counts[i].Count++
			}
		}
	}

	return Report{Page: page, URL: url, Counts: counts}
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
