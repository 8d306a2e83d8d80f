// Package header parses the list grammar shared by HTTP header fields:
// comma-separated items, each optionally carrying ;-separated parameters,
// with quoted-string values.
//
// Parsing is deliberately permissive. Header values arrive from untrusted
// clients, so a malformed item is skipped and counted instead of failing
// the whole parse.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
package header

import (
	"strings"

	"github.com/whiteroses/webob/util/rule"
)

// Param is a single item parameter. Name is lowercased since parameter
// names are case-insensitive; Value is unquoted and unescaped.
type Param struct {
	Name  string
	Value string
}

// Item is one element of a header list: a primary token plus its
// parameters in wire order.
type Item struct {
	Value  string
	Params []Param
}

// Param returns the value of the named parameter.
func (i Item) Param(name string) (value string, ok bool) {
	name = strings.ToLower(name)
	for _, p := range i.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// List is the result of parsing one header value. Dropped counts malformed
// items that were skipped; it is a diagnostic, never an error.
type List struct {
	Items   []Item
	Dropped int

	absent bool
}

// Absent returns the sentinel for a header that was not sent at all.
// It is distinct from Parse(""), which is a present-but-empty header.
func Absent() List { return List{absent: true} }

// IsAbsent reports whether the list stands for a missing header.
func (l List) IsAbsent() bool { return l.absent }

// Parse parses a present header value. It never fails: empty elements
// (doubled commas) are skipped silently, items with an unterminated quote
// or parameters on an empty token are dropped and counted.
func Parse(raw string) List {
	var list List

	elems, balanced := splitQuoted(raw, ',')
	for idx, elem := range elems {
		if !balanced && idx == len(elems)-1 {
			// The unterminated quote swallowed the rest of the value.
			list.Dropped++
			continue
		}

		item, ok, malformed := parseItem(elem)
		if malformed {
			list.Dropped++
			continue
		}
		if ok {
			list.Items = append(list.Items, item)
		}
	}

	return list
}

func parseItem(elem string) (item Item, ok, malformed bool) {
	segs, _ := splitQuoted(elem, ';')

	item.Value = strings.TrimFunc(segs[0], rule.IsWhitespace)
	for _, seg := range segs[1:] {
		seg = strings.TrimFunc(seg, rule.IsWhitespace)
		if seg == "" {
			continue
		}

		name, value := seg, ""
		if idx := indexQuoted(seg, '='); idx >= 0 {
			name = strings.TrimFunc(seg[:idx], rule.IsWhitespace)
			value = strings.TrimFunc(seg[idx+1:], rule.IsWhitespace)
			value = string(rule.Unquote([]byte(value)))
		}
		if name == "" {
			continue
		}

		item.Params = append(item.Params, Param{
			Name:  strings.ToLower(name),
			Value: value,
		})
	}

	if item.Value == "" {
		if len(item.Params) > 0 {
			// Parameters without a token to attach them to.
			return Item{}, false, true
		}
		// Empty element, e.g. "a,,b".
		return Item{}, false, false
	}

	return item, true, false
}

// splitQuoted splits s on sep, ignoring separators inside double quotes.
// Backslash escapes the next byte inside a quoted string. balanced is
// false when a quote was left open.
func splitQuoted(s string, sep byte) (parts []string, balanced bool) {
	quoted := false
	start := 0

	for idx := 0; idx < len(s); idx++ {
		switch c := s[idx]; {
		case c == '\\' && quoted && idx+1 < len(s):
			idx++
		case c == '"':
			quoted = !quoted
		case c == sep && !quoted:
			parts = append(parts, s[start:idx])
			start = idx + 1
		}
	}

	parts = append(parts, s[start:])
	return parts, !quoted
}

// indexQuoted returns the index of the first sep outside double quotes,
// or -1.
func indexQuoted(s string, sep byte) int {
	quoted := false
	for idx := 0; idx < len(s); idx++ {
		switch c := s[idx]; {
		case c == '\\' && quoted && idx+1 < len(s):
			idx++
		case c == '"':
			quoted = !quoted
		case c == sep && !quoted:
			return idx
		}
	}
	return -1
}
