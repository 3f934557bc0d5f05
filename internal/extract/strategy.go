// Package extract locates identity fields in normalized OCR text.
//
// Every extractor has the shape of Func: it looks at the whole text and the
// line list and either returns a value or reports no match. A missing field
// is a normal outcome and never an error. Fields that need several
// heuristics compose them as an ordered chain of Strategy values tried
// first-match-wins.
package extract

import "strings"

// Func is a single field heuristic.
type Func func(text string, lines []string) (string, bool)

// Strategy is a named heuristic in a chain.
type Strategy struct {
	Name string
	Fn   Func
}

// FirstMatch runs the chain in order and returns the first non-empty value
// together with the name of the strategy that produced it.
func FirstMatch(text string, lines []string, chain ...Strategy) (value, strategy string, ok bool) {
	for _, s := range chain {
		if v, found := s.Fn(text, lines); found {
			v = strings.TrimSpace(v)
			if v != "" {
				return v, s.Name, true
			}
		}
	}
	return "", "", false
}
