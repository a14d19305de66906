package drive

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// StreetKey is the conflict key for a street name: NFKC, case folded,
// whitespace collapsed, trailing punctuation removed. "Main St." and
// "main  st" share a key; "Main Street" does not.
func StreetKey(name string) string {
	s := norm.NFKC.String(name)
	s = folder.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// FoldName compares person and group names case-insensitively.
func FoldName(name string) string {
	return folder.String(strings.Join(strings.Fields(norm.NFKC.String(name)), " "))
}

// JoinName renders "First Last", tolerating empty parts.
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// SplitName parses "Last, First" or "First Middle Last". A single word is
// returned as the first name.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	if before, after, ok := strings.Cut(full, ","); ok {
		return strings.TrimSpace(after), strings.TrimSpace(before)
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// NormalizeGrade turns spreadsheet values like "10.0" or " 12 " into "10"/"12".
func NormalizeGrade(raw string) string {
	g := strings.TrimSpace(raw)
	if g == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(g, 64); err == nil && f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return g
}

// ValidGrade reports whether g is one of 9..12 after normalization.
func ValidGrade(g string) bool {
	switch NormalizeGrade(g) {
	case "9", "10", "11", "12":
		return true
	}
	return false
}

// NormalizeHomeroom strips a trailing ".0" and pads one or two digit rooms to
// three digits ("5" -> "005", "12.0" -> "012"). Other values are trimmed.
func NormalizeHomeroom(raw string) string {
	h := strings.TrimSpace(raw)
	h = strings.TrimSuffix(h, ".0")
	if h == "" {
		return ""
	}
	if n, err := strconv.Atoi(h); err == nil && n >= 0 && len(h) <= 2 {
		return padRoom(n)
	}
	return h
}

func padRoom(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// SplitStreets breaks comma separated street input into trimmed names.
func SplitStreets(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
