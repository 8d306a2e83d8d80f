// Package form decodes and encodes application/x-www-form-urlencoded
// data — query strings and form bodies — into ordered multimaps.
package form

import (
	"strings"

	"github.com/whiteroses/webob/multimap"
)

// ParseQuery decodes a query string or form body into a case-sensitive
// ordered map. Pairs split on & (and legacy ;), + decodes to space, and
// percent escapes are decoded. A name or value with a broken escape keeps
// its raw text instead of failing; empty pairs are skipped.
// Reference: https://url.spec.whatwg.org/#urlencoded-parsing
func ParseQuery(raw string) *multimap.Map {
	m := multimap.New(multimap.CaseSensitive)

	for _, pair := range splitPairs(raw) {
		if pair == "" {
			continue
		}

		name, value, _ := strings.Cut(pair, "=")
		if name == "" {
			continue
		}

		m.Add(decodeComponent(name), decodeComponent(value))
	}

	return m
}

// EncodeQuery is the inverse of ParseQuery, preserving entry order.
func EncodeQuery(m *multimap.Map) string {
	b := new(strings.Builder)

	first := true
	for k, v := range m.All() {
		if !first {
			b.WriteByte('&')
		}
		first = false

		b.WriteString(escape(k))
		b.WriteByte('=')
		b.WriteString(escape(v))
	}

	return b.String()
}

func splitPairs(raw string) []string {
	// The legacy ; separator predates the WHATWG algorithm but is still
	// seen in the wild.
	raw = strings.ReplaceAll(raw, ";", "&")
	return strings.Split(raw, "&")
}

// decodeComponent decodes + and percent escapes. Malformed input is
// returned untouched: query strings come from clients and must not make
// the parse fail.
func decodeComponent(s string) string {
	decoded, ok := unescape(s)
	if !ok {
		return s
	}
	return decoded
}

func hex(c byte) (h [2]byte) {
	const hexSet = "0123456789ABCDEF"
	h[0] = hexSet[c>>4]
	h[1] = hexSet[c&0xF]
	return
}

func unhex(h [2]byte) (c byte, ok bool) {
	hi, ok := hexToNum(h[0])
	if !ok {
		return 0, false
	}
	lo, ok := hexToNum(h[1])
	if !ok {
		return 0, false
	}
	return hi<<4 | lo, true
}

func hexToNum(h byte) (byte, bool) {
	switch {
	case '0' <= h && h <= '9':
		return h - '0', true
	case 'a' <= h && h <= 'f':
		return h - 'a' + 10, true
	case 'A' <= h && h <= 'F':
		return h - 'A' + 10, true
	}
	return 0, false
}

func escape(s string) string {
	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case shouldEscape(c):
			h := hex(c)
			b.Write([]byte{'%', h[0], h[1]})
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func unescape(s string) (string, bool) {
	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		switch c := s[idx]; c {
		case '+':
			b.WriteByte(' ')
		case '%':
			if idx+2 >= len(s) {
				return "", false
			}
			decoded, ok := unhex([2]byte{s[idx+1], s[idx+2]})
			if !ok {
				return "", false
			}
			b.WriteByte(decoded)
			idx += 2
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), true
}

// shouldEscape keeps the unreserved set plus the characters form encoding
// traditionally leaves bare.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.3
func shouldEscape(c byte) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return false
	}
	switch c {
	case '-', '.', '_', '~', '*':
		return false
	}
	return true
}
