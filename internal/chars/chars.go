// Package chars classifies characters that have stroke-order data.
package chars

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Type is the writing system of a practiceable character.
type Type string

const (
	Hiragana Type = "hiragana"
	Katakana Type = "katakana"
	Kanji    Type = "kanji"
	Unknown  Type = "unknown"
)

// WritingType classifies r by the ranges the stroke corpus covers.
func WritingType(r rune) Type {
	switch {
	case r >= 0x3041 && r <= 0x3096:
		return Hiragana
	case r >= 0x30A1 && r <= 0x30FA:
		return Katakana
	case r >= 0x4E00 && r <= 0x9FFF,
		r >= 0x3400 && r <= 0x4DBF,
		r >= 0xF900 && r <= 0xFAFF:
		return Kanji
	default:
		return Unknown
	}
}

// TypeOf classifies a single-character string; anything else is Unknown.
func TypeOf(s string) Type {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return Unknown
	}
	return WritingType(r)
}

// IsKana reports whether r is hiragana or katakana.
func IsKana(r rune) bool {
	t := WritingType(r)
	return t == Hiragana || t == Katakana
}

// CodePointHex returns the lowercase code point padded to five digits, the
// naming used by KanjiVG files ("4e00" -> "04e00").
func CodePointHex(r rune) string {
	return fmt.Sprintf("%05x", r)
}

// FromCodePointHex parses a KanjiVG file stem back into a rune.
func FromCodePointHex(hex string) (rune, error) {
	hex = strings.TrimLeft(strings.ToLower(hex), "0")
	if hex == "" {
		return 0, fmt.Errorf("empty code point")
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid code point %q: %w", hex, err)
	}
	if v > utf8.MaxRune {
		return 0, fmt.Errorf("code point %q out of range", hex)
	}
	return rune(v), nil
}

// Normalize composes decomposed kana so that "か" followed by a combining
// voiced mark becomes "が".
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Practiceable returns the distinct practiceable characters of word in order.
func Practiceable(word string) []string {
	var out []string
	seen := map[rune]struct{}{}
	for _, r := range Normalize(word) {
		if WritingType(r) == Unknown {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, string(r))
	}
	return out
}
