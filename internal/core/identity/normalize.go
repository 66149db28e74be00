package identity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize is the key form of a label: NFC composed, trimmed, lowercased.
// NFC keeps "Café" typed with a combining accent equal to the precomposed
// label the host sends.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// FallbackLabel renders an identifier for display when no label is known:
// "weapon_pistol" becomes "Weapon Pistol". Empty segments are dropped.
func FallbackLabel(identifier string) string {
	parts := strings.Split(identifier, "_")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		words = append(words, capitalize(p))
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
