// Package cookie parses Cookie headers and serializes Set-Cookie values.
// Reference: https://datatracker.ietf.org/doc/html/rfc6265
package cookie

import (
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/whiteroses/webob/multimap"
	"github.com/whiteroses/webob/util/httpdate"
	"github.com/whiteroses/webob/util/rule"
)

// Parse splits a Cookie header value into an ordered map. Pairs split at
// the first =; names and values are trimmed, wrapping double quotes are
// stripped, and the bytes are otherwise kept opaque — any charset decoding
// is the caller's business. Nameless pairs are skipped.
func Parse(raw string) *multimap.Map {
	m := multimap.New(multimap.CaseSensitive)

	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimFunc(pair, rule.IsWhitespace)
		if pair == "" {
			continue
		}

		name, value, _ := strings.Cut(pair, "=")
		name = strings.TrimFunc(name, rule.IsWhitespace)
		if name == "" {
			continue
		}

		value = strings.TrimFunc(value, rule.IsWhitespace)
		value = string(rule.Unquote([]byte(value)))

		m.Add(name, value)
	}

	return m
}

// SameSite is the SameSite cookie attribute.
type SameSite string

const (
	SameSiteUnset  SameSite = ""
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// Attributes are the Set-Cookie attributes. The zero value sets none.
type Attributes struct {
	Domain string
	Path   string

	// MaxAge is the lifetime in seconds. Serializing a Max-Age also emits
	// the equivalent computed expires for clients without Max-Age support.
	MaxAge *int
	// Expires is an absolute expiry, used when MaxAge is nil.
	Expires time.Time

	Secure   bool
	HTTPOnly bool
	SameSite SameSite
}

// MaxAge is shorthand for an Attributes.MaxAge literal.
func MaxAge(seconds int) *int { return &seconds }

// Codec serializes Set-Cookie values. The clock feeds the computed
// expires attribute.
type Codec struct {
	clock clock.Clock
}

// NewCodec creates a Codec. A nil clk uses the wall clock.
func NewCodec(clk clock.Clock) *Codec {
	if clk == nil {
		clk = clock.New()
	}
	return &Codec{clock: clk}
}

// SetCookie renders a Set-Cookie value: name=value followed by attributes
// in the canonical order Domain, Max-Age, Path, expires, secure, HttpOnly,
// SameSite.
func (c *Codec) SetCookie(name, value string, attrs Attributes) (string, error) {
	if !rule.IsValidToken(name) {
		return "", errors.Errorf("invalid cookie name: %q", name)
	}
	if attrs.MaxAge != nil && *attrs.MaxAge < 0 {
		return "", errors.Errorf("negative Max-Age: %d", *attrs.MaxAge)
	}
	if attrs.SameSite == SameSiteNone && !attrs.Secure {
		// Browsers reject SameSite=None cookies without Secure.
		return "", errors.New("SameSite=None requires Secure")
	}

	b := new(strings.Builder)
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(value))

	if attrs.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(attrs.Domain)
	}

	expires := attrs.Expires
	if attrs.MaxAge != nil {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(*attrs.MaxAge))
		if expires.IsZero() {
			// Equivalent absolute expiry for clients without Max-Age
			// support. An explicit Expires wins.
			expires = c.clock.Now().Add(time.Duration(*attrs.MaxAge) * time.Second)
		}
	}

	if attrs.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(attrs.Path)
	}

	if !expires.IsZero() {
		b.WriteString("; expires=")
		b.WriteString(httpdate.Format(expires))
	}

	if attrs.Secure {
		b.WriteString("; secure")
	}
	if attrs.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if attrs.SameSite != SameSiteUnset {
		b.WriteString("; SameSite=")
		b.WriteString(string(attrs.SameSite))
	}

	return b.String(), nil
}

// DeleteCookie renders a Set-Cookie value that expires the named cookie:
// empty value, Max-Age=0, and an expiry in the past. It only shapes what
// the server sends; it cannot reach into a client's cookie store.
func (c *Codec) DeleteCookie(name string, attrs Attributes) (string, error) {
	attrs.MaxAge = MaxAge(0)
	attrs.Expires = time.Unix(0, 0)
	return c.SetCookie(name, "", attrs)
}

// quoteIfNeeded wraps the value in double quotes when it contains bytes
// that would break the pair apart.
func quoteIfNeeded(value string) string {
	if strings.ContainsAny(value, `;, "\`) {
		return rule.Quote(value)
	}
	return value
}
