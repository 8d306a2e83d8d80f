// Package conditional evaluates HTTP conditional-request preconditions:
// entity tags, If-Match / If-None-Match / If-Modified-Since /
// If-Unmodified-Since, and If-Range.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-13
package conditional

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/whiteroses/webob/header"
	"github.com/whiteroses/webob/util/httpdate"
	"github.com/whiteroses/webob/util/rule"
)

// ETag is an entity tag: an opaque validator plus its weakness flag.
type ETag struct {
	Tag  string
	Weak bool
}

// ParseETag accepts `"opaque"` and `W/"opaque"`. A bare token without
// quotes is tolerated and treated as a strong tag, since real clients
// send those.
func ParseETag(raw string) (ETag, error) {
	raw = strings.TrimFunc(raw, rule.IsWhitespace)
	if raw == "" {
		return ETag{}, errors.New("empty entity tag")
	}

	var e ETag
	if rest, ok := strings.CutPrefix(raw, "W/"); ok {
		e.Weak = true
		raw = rest
	}

	e.Tag = string(rule.Unquote([]byte(raw)))
	if e.Tag == "" && raw != `""` {
		return ETag{}, errors.Errorf("malformed entity tag: %q", raw)
	}

	return e, nil
}

// String renders the RFC 7232 wire form.
func (e ETag) String() string {
	s := rule.Quote(e.Tag)
	if e.Weak {
		return "W/" + s
	}
	return s
}

// StrongMatch requires byte-identical opaque tags and both tags strong.
func StrongMatch(a, b ETag) bool {
	return !a.Weak && !b.Weak && a.Tag == b.Tag
}

// WeakMatch requires only equal opaque tags, either strength.
func WeakMatch(a, b ETag) bool {
	return a.Tag == b.Tag
}

// Tags is a parsed If-Match or If-None-Match value. Any stands for the
// * wildcard matching every current representation.
type Tags struct {
	Any   bool
	ETags []ETag
}

// ParseTags parses an entity-tag list. Malformed members are skipped;
// commas inside quoted tags do not split.
func ParseTags(raw string) Tags {
	var tags Tags
	for _, item := range header.Parse(raw).Items {
		if item.Value == "*" {
			tags.Any = true
			continue
		}
		e, err := ParseETag(item.Value)
		if err != nil {
			continue
		}
		tags.ETags = append(tags.ETags, e)
	}
	return tags
}

// String renders the list back to wire form.
func (t Tags) String() string {
	if t.Any {
		return "*"
	}
	parts := make([]string, len(t.ETags))
	for idx, e := range t.ETags {
		parts[idx] = e.String()
	}
	return strings.Join(parts, ", ")
}

func (t Tags) containsStrong(e ETag) bool {
	for _, c := range t.ETags {
		if StrongMatch(c, e) {
			return true
		}
	}
	return false
}

func (t Tags) containsWeak(e ETag) bool {
	for _, c := range t.ETags {
		if WeakMatch(c, e) {
			return true
		}
	}
	return false
}

// Verdict is the terminal classification of a precondition evaluation.
// It is always a value, never an error; the caller maps it to a status
// code.
type Verdict int

const (
	// Proceed means no precondition blocks the request.
	Proceed Verdict = iota
	// NotModified means a cache validator matched on a safe method (304).
	NotModified
	// PreconditionFailed means a precondition did not hold (412).
	PreconditionFailed
)

func (v Verdict) String() string {
	switch v {
	case Proceed:
		return "proceed"
	case NotModified:
		return "not modified"
	case PreconditionFailed:
		return "precondition failed"
	}
	return "unknown"
}

// Preconditions is a snapshot of the conditional headers on a request.
// A nil Tags pointer or zero time means the header was absent.
type Preconditions struct {
	IfMatch           *Tags
	IfNoneMatch       *Tags
	IfModifiedSince   time.Time
	IfUnmodifiedSince time.Time

	// SafeMethod is true for GET and HEAD. It decides whether a matching
	// If-None-Match yields NotModified or PreconditionFailed.
	SafeMethod bool
}

// Evaluate applies the preconditions against the selected representation's
// validators, in the order RFC 9110 section 13.2.2 prescribes. A nil etag
// or zero lastModified means the representation has no such validator.
func Evaluate(p Preconditions, etag *ETag, lastModified time.Time) Verdict {
	if p.IfMatch != nil {
		// If-Match uses the strong comparison; weak tags never match.
		if !p.IfMatch.Any && (etag == nil || !p.IfMatch.containsStrong(*etag)) {
			return PreconditionFailed
		}
	} else if !p.IfUnmodifiedSince.IsZero() {
		if !lastModified.IsZero() && lastModified.After(p.IfUnmodifiedSince) {
			return PreconditionFailed
		}
	}

	if p.IfNoneMatch != nil {
		matched := p.IfNoneMatch.Any ||
			(etag != nil && p.IfNoneMatch.containsWeak(*etag))
		if matched {
			if p.SafeMethod {
				return NotModified
			}
			return PreconditionFailed
		}
		return Proceed
	}

	if p.SafeMethod && !p.IfModifiedSince.IsZero() {
		// Ignored when the representation has no modification date.
		if !lastModified.IsZero() && !lastModified.After(p.IfModifiedSince) {
			return NotModified
		}
	}

	return Proceed
}

// IfRange is a parsed If-Range value: either an entity tag or a date,
// never both. The zero value means the header was absent, which matches
// (the range may be served).
type IfRange struct {
	ETag *ETag
	Date time.Time
}

// ParseIfRange distinguishes the two forms by shape: entity tags start
// with a DQUOTE or W/, anything else is tried as an HTTP-date. Unparsable
// input yields a value that never matches, so the full body is served.
func ParseIfRange(raw string) IfRange {
	raw = strings.TrimFunc(raw, rule.IsWhitespace)
	if raw == "" {
		return IfRange{}
	}

	if strings.HasPrefix(raw, `"`) || strings.HasPrefix(raw, "W/") {
		if e, err := ParseETag(raw); err == nil {
			return IfRange{ETag: &e}
		}
		return IfRange{ETag: &ETag{Weak: true}}
	}

	if t, err := httpdate.Parse(raw); err == nil {
		return IfRange{Date: t}
	}

	// Unparsable: a tag that can't strong-match anything real.
	return IfRange{ETag: &ETag{Weak: true}}
}

// Matches reports whether the stored If-Range validator still identifies
// the representation. Tags compare strongly; a date matches only when
// lastModified is not after it. On mismatch the caller must ignore the
// Range header and serve the full body.
func (r IfRange) Matches(etag *ETag, lastModified time.Time) bool {
	if r.ETag != nil {
		return etag != nil && StrongMatch(*r.ETag, *etag)
	}
	if !r.Date.IsZero() {
		return !lastModified.IsZero() && !lastModified.After(r.Date)
	}
	return true
}
