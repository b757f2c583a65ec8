package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/warp/qb-export/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

const idDigits = 9

// NormalizeID strips punctuation and whitespace from a government ID. When
// exactly nine digits remain the digit-only form is returned. Otherwise the
// trimmed original is returned together with a *MalformedIdentifierError,
// which callers report as a warning. A blank ID is returned blank.
func NormalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	var b strings.Builder
	digits, other := 0, 0
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r):
		default:
			other++
		}
	}
	if digits == idDigits && other == 0 {
		return b.String(), nil
	}
	return trimmed, &generic.MalformedIdentifierError{Value: trimmed, Digits: digits}
}

// =============================================================================
// TEXT
// =============================================================================

// Fold removes diacritical marks and surrounding whitespace. The vendor
// import accepts ASCII names and addresses only.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// yesNoUnknown renders the extract's Y/N smoker flag in vendor form.
func yesNoUnknown(flag string) string {
	switch strings.ToUpper(strings.TrimSpace(flag)) {
	case "Y", "YES", "TRUE", "1":
		return "YES"
	case "N", "NO", "FALSE", "0":
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// sexCode renders M/F, anything else as U.
func sexCode(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	default:
		return "U"
	}
}
