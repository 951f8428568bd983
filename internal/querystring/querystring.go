// Package querystring encodes and decodes URL components
// the way browsers do with encodeURIComponent and decodeURIComponent.
package querystring

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformed is returned when decoding a component with invalid escapes or invalid UTF-8.
var ErrMalformed = errors.New("malformed URI component")

// Pair is a key-value pair of a query string.
type Pair struct {
	Key   string
	Value string
}

// Encode returns a query string for pairs including the leading question mark.
// Pairs keep the given order.
func Encode(pairs []Pair) string {
	var b strings.Builder
	b.WriteByte('?')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EncodeComponent(p.Key))
		b.WriteByte('=')
		b.WriteString(EncodeComponent(p.Value))
	}
	return b.String()
}

// EncodeComponent escapes all characters except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

// DecodeComponent reverses EncodeComponent.
// It accepts unescaped characters and reports an error for invalid escapes
// and for escapes which do not form valid UTF-8.
// A plus sign is not treated as a space.
func DecodeComponent(s string) (string, error) {
	if !strings.Contains(s, "%") {
		if !utf8.ValidString(s) {
			return "", fmt.Errorf("decode %q: %w", s, ErrMalformed)
		}
		return s, nil
	}
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			buf = append(buf, c)
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return "", fmt.Errorf("decode %q at %d: %w", s, i, ErrMalformed)
		}
		buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
		i += 2
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("decode %q: invalid UTF-8: %w", s, ErrMalformed)
	}
	return string(buf), nil
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}
