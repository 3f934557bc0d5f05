package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"idverify/internal/models"
)

var (
	reIDNumberAt = regexp.MustCompile(`^\d{4}\s?\d{4}\s?\d{4}`)
	reDatePrefix = regexp.MustCompile(`\d{1,2}[/.-]\d{1,2}[/.-]$`)
	reWhitespace = regexp.MustCompile(`\s+`)

	reDOBSlash = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	reDOBISO   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDOBDash  = regexp.MustCompile(`\b(\d{2})-(\d{2})-(\d{4})\b`)

	reFemale = regexp.MustCompile(`(?i)\bfemale\b`)
	reMale   = regexp.MustCompile(`(?i)\bmale\b`)
)

const addressWindow = 100

// IDNumber finds the first 12-digit number, optionally written as three
// whitespace-separated blocks of four, and returns it without whitespace.
// A candidate must not start inside another number or be the year of a
// DD/MM/ date, so "01/01/1990 1234 5678 9012" yields the card number and
// not 199012345678. Numbers glued to other punctuation, as in
// "No.1234 5678 9012", are kept. No checksum is verified.
func IDNumber(text string, _ []string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if !isDigit(text[i]) {
			continue
		}
		if i > 0 && isDigit(text[i-1]) {
			continue
		}
		if reDatePrefix.MatchString(text[:i]) {
			continue
		}
		loc := reIDNumberAt.FindStringIndex(text[i:])
		if loc == nil {
			continue
		}
		end := i + loc[1]
		if end < len(text) && isDigit(text[end]) {
			continue
		}
		return reWhitespace.ReplaceAllString(text[i:end], ""), true
	}
	return "", false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// DateOfBirthChain is the date-of-birth priority order. The slash form wins
// over the ISO form regardless of which appears first in the text.
var DateOfBirthChain = []Strategy{
	{Name: "slash", Fn: dobSlash},
	{Name: "iso", Fn: dobISO},
	{Name: "dash", Fn: dobDash},
}

// DateOfBirth returns the first date found by DateOfBirthChain as DD/MM/YYYY.
// The date is not checked against the calendar; see ValidDate.
func DateOfBirth(text string, lines []string) (string, bool) {
	v, _, ok := FirstMatch(text, lines, DateOfBirthChain...)
	return v, ok
}

func dobSlash(text string, _ []string) (string, bool) {
	m := reDOBSlash.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[0], true
}

func dobISO(text string, _ []string) (string, bool) {
	m := reDOBISO.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[3] + "/" + m[2] + "/" + m[1], true
}

func dobDash(text string, _ []string) (string, bool) {
	m := reDOBDash.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[0], "-", "/"), true
}

// ValidDate reports whether a DD/MM/YYYY string is a real calendar date.
// Extraction does not use it to reject values.
func ValidDate(ddmmyyyy string) bool {
	_, err := time.Parse("02/01/2006", ddmmyyyy)
	return err == nil
}

// GenderOf classifies the card's gender marker. The female tokens are
// tested first because "FEMALE" contains "MALE".
func GenderOf(text string, _ []string) (models.Gender, bool) {
	switch {
	case reFemale.MatchString(text), strings.Contains(text, "महिला"):
		return models.GenderFemale, true
	case reMale.MatchString(text), strings.Contains(text, "पुरुष"):
		return models.GenderMale, true
	}
	return models.GenderUnknown, false
}

// Gender adapts GenderOf to Func.
func Gender(text string, lines []string) (string, bool) {
	g, ok := GenderOf(text, lines)
	return string(g), ok
}

// addressAfter returns the text following the first label match up to the
// next paragraph break, or at most addressWindow characters.
func addressAfter(label *regexp.Regexp) Func {
	return func(text string, _ []string) (string, bool) {
		loc := label.FindStringIndex(text)
		if loc == nil {
			return "", false
		}
		rest := text[loc[1]:]
		if i := strings.Index(rest, "\n\n"); i >= 0 {
			rest = rest[:i]
		} else if utf8.RuneCountInString(rest) > addressWindow {
			rest = string([]rune(rest)[:addressWindow])
		}
		rest = strings.TrimSpace(rest)
		return rest, rest != ""
	}
}
