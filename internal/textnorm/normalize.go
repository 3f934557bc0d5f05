// Package textnorm prepares raw OCR output for field matching.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reInlineGaps = regexp.MustCompile(`[\t\f\v\x{00A0} ]+`)
)

// Text is normalized document text: the whole text for pattern search and
// the non-empty lines for line-oriented heuristics.
type Text struct {
	// Joined keeps line structure. Runs of blank lines are collapsed to a
	// single "\n\n" paragraph break.
	Joined string
	Lines  []string
}

// IsEmpty reports whether no text survived normalization.
func (t Text) IsEmpty() bool {
	return t.Joined == ""
}

// Normalize cleans raw OCR text. Unicode is composed (NFC) so that
// Devanagari labels compare byte-for-byte, full-width digits and Latin are
// folded to ASCII, and inline whitespace is collapsed.
func Normalize(raw string) Text {
	if strings.TrimSpace(raw) == "" {
		return Text{}
	}
	s := width.Fold.String(norm.NFC.String(raw))
	s = reCRLF.ReplaceAllString(s, "\n")

	var (
		lines  []string
		joined strings.Builder
		gap    bool
	)
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(reInlineGaps.ReplaceAllString(ln, " "))
		if ln == "" {
			gap = true
			continue
		}
		if len(lines) > 0 {
			joined.WriteByte('\n')
			if gap {
				joined.WriteByte('\n')
			}
		}
		gap = false
		lines = append(lines, ln)
		joined.WriteString(ln)
	}
	return Text{Joined: joined.String(), Lines: lines}
}
