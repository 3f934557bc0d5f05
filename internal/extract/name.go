package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// NameOrder selects how the all-caps heuristic combines with the label
// based ones.
type NameOrder string

const (
	// NameOrderOverride lets an all-caps run replace a labeled or
	// positional match whenever one exists. This is the historical
	// behaviour and the default.
	NameOrderOverride NameOrder = "override"
	// NameOrderLabeledFirst tries the labeled line, then the line above
	// the birth date, and only then the all-caps run.
	NameOrderLabeledFirst NameOrder = "labeled-first"
)

var reAllCapsRun = regexp.MustCompile(`\b[A-Z]+(?: [A-Z]+){1,3}\b`)

// labelPattern matches label followed by optional spaces and a colon, not
// preceded by a letter.
func labelPattern(labels []string, colon bool) *regexp.Regexp {
	quoted := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		q := regexp.QuoteMeta(l)
		q = strings.ReplaceAll(q, " ", `\s+`)
		quoted = append(quoted, q)
	}
	if len(quoted) == 0 {
		// matches nothing
		return regexp.MustCompile(`[^\x00-\x{10FFFF}]`)
	}
	expr := `(?i)(?:^|[^\p{L}])(?:` + strings.Join(quoted, "|") + `)`
	if colon {
		expr += `\s*:`
	}
	return regexp.MustCompile(expr)
}

// labeledName takes the text after the first colon of the first line that
// carries a name label.
func labeledName(label *regexp.Regexp) Func {
	return func(_ string, lines []string) (string, bool) {
		for _, ln := range lines {
			if !label.MatchString(ln) {
				continue
			}
			i := strings.IndexByte(ln, ':')
			if i < 0 {
				continue
			}
			if v := strings.TrimSpace(ln[i+1:]); v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// nameAboveDOB takes the line right above the first birth-date label line,
// unless that line is purely numeric or carries issuer boilerplate.
func nameAboveDOB(dobLabel *regexp.Regexp, boilerplate []string) Func {
	return func(_ string, lines []string) (string, bool) {
		for i, ln := range lines {
			if !dobLabel.MatchString(ln) {
				continue
			}
			if i == 0 {
				return "", false
			}
			cand := strings.TrimSpace(lines[i-1])
			if cand == "" || numericOnly(cand) || containsAnyFold(cand, boilerplate) {
				return "", false
			}
			return cand, true
		}
		return "", false
	}
}

// allCapsName returns the first run of two to four uppercase words.
func allCapsName(text string, _ []string) (string, bool) {
	m := reAllCapsRun.FindString(text)
	return m, m != ""
}

func numericOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, tokens []string) bool {
	ls := strings.ToLower(s)
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(ls, t) {
			return true
		}
	}
	return false
}
