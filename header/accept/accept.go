// Package accept implements proactive content negotiation over the
// Accept family of headers (Accept, Accept-Language, Accept-Charset,
// Accept-Encoding).
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.4
package accept

import (
	"sort"
	"strconv"
	"strings"

	"github.com/whiteroses/webob/header"
)

// Scheme selects how a range is matched against an offer.
type Scheme int

const (
	// MediaType matches type/subtype with */* and type/* wildcards (Accept).
	MediaType Scheme = iota
	// Language matches by primary-subtag prefix, so range "en" matches an
	// offered "en-US" (Accept-Language).
	// Reference: https://datatracker.ietf.org/doc/html/rfc4647#section-3.3.1
	Language
	// Token matches case-insensitively with a bare * wildcard
	// (Accept-Charset, Accept-Encoding).
	Token
)

// Match specificity, used for preference ordering and tie-breaking.
const (
	specNone = iota
	specFullWildcard
	specPartialWildcard
	specExact
)

// Range is one parsed element of an Accept-family header.
type Range struct {
	Value   string
	Quality float64
	Params  []header.Param // everything except q
}

// Header is a parsed Accept-family header value. The zero value is not
// meaningful; use Parse or Absent.
type Header struct {
	scheme Scheme
	ranges []Range
	absent bool
}

// Parse parses a present header value. A present-but-empty header offers
// nothing, which is not the same as an absent header accepting anything.
// Unparsable or out-of-range q values clamp to 0.0 (not acceptable)
// instead of failing.
func Parse(raw string, scheme Scheme) Header {
	list := header.Parse(raw)

	h := Header{scheme: scheme}
	for _, item := range list.Items {
		r := Range{Value: item.Value, Quality: 1.0}
		for _, p := range item.Params {
			if p.Name == "q" {
				r.Quality = parseQuality(p.Value)
				continue
			}
			r.Params = append(r.Params, p)
		}
		h.ranges = append(h.ranges, r)
	}

	return h
}

// Absent returns the accept-anything value used when the header was not
// sent: everything matches with quality 1.0.
func Absent(scheme Scheme) Header {
	return Header{scheme: scheme, absent: true}
}

// IsAbsent reports whether the header stands for "header not sent".
func (h Header) IsAbsent() bool { return h.absent }

// Ranges returns the parsed ranges in wire order.
func (h Header) Ranges() []Range {
	clone := make([]Range, len(h.ranges))
	copy(clone, h.ranges)
	return clone
}

// Contains reports whether offer is acceptable: some range matches it with
// quality above zero, or the header is absent.
func (h Header) Contains(offer string) bool {
	if h.absent {
		return true
	}
	return h.Quality(offer) > 0
}

// Quality returns the highest quality among ranges matching offer, 0.0
// when none match, and 1.0 when the header is absent.
func (h Header) Quality(offer string) float64 {
	if h.absent {
		return 1.0
	}

	best := 0.0
	for _, r := range h.ranges {
		if _, ok := h.match(r.Value, offer); ok && r.Quality > best {
			best = r.Quality
		}
	}
	return best
}

// ByPreference returns the acceptable range values sorted by descending
// quality; ties break on specificity (exact over partial wildcard over
// full wildcard), then wire order. An absent header has no ranges to
// enumerate and yields nil.
func (h Header) ByPreference() []string {
	type ranked struct {
		value string
		q     float64
		spec  int
	}

	var rs []ranked
	for _, r := range h.ranges {
		if r.Quality <= 0 {
			continue
		}
		rs = append(rs, ranked{r.Value, r.Quality, h.rangeSpecificity(r.Value)})
	}

	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].q != rs[j].q {
			return rs[i].q > rs[j].q
		}
		return rs[i].spec > rs[j].spec
	})

	values := make([]string, len(rs))
	for idx, r := range rs {
		values[idx] = r.value
	}
	return values
}

// BestMatch picks the offer the client prefers most. Offers carry equal
// server weight; ties break on match specificity (an exact match beats a
// wildcard or prefix match at equal quality), then offer order. When no
// offer has positive quality, fallback is returned. An absent header
// prefers the explicit fallback when one is given, otherwise the first
// offer.
func (h Header) BestMatch(offers []string, fallback string) string {
	if h.absent {
		if fallback != "" {
			return fallback
		}
		if len(offers) > 0 {
			return offers[0]
		}
		return ""
	}

	best, bestQ, bestSpec := fallback, 0.0, specNone
	for _, offer := range offers {
		q, spec := h.qualityAndSpec(offer)
		if q > bestQ || (q == bestQ && spec > bestSpec) {
			best, bestQ, bestSpec = offer, q, spec
		}
	}

	if bestQ <= 0 {
		return fallback
	}
	return best
}

func (h Header) qualityAndSpec(offer string) (float64, int) {
	q, spec := 0.0, specNone
	for _, r := range h.ranges {
		s, ok := h.match(r.Value, offer)
		if !ok {
			continue
		}
		if r.Quality > q || (r.Quality == q && s > spec) {
			q, spec = r.Quality, s
		}
	}
	return q, spec
}

// match reports whether the range value matches offer under the header's
// scheme, and how specific the match is.
func (h Header) match(rangeVal, offer string) (spec int, ok bool) {
	rangeVal = strings.ToLower(rangeVal)
	offer = strings.ToLower(offer)

	switch h.scheme {
	case MediaType:
		if rangeVal == "*/*" {
			return specFullWildcard, true
		}
		if rtype, ok := strings.CutSuffix(rangeVal, "/*"); ok {
			otype, _, _ := strings.Cut(offer, "/")
			if rtype == otype {
				return specPartialWildcard, true
			}
			return specNone, false
		}
		if rangeVal == offer {
			return specExact, true
		}

	case Language:
		if rangeVal == "*" {
			return specFullWildcard, true
		}
		if rangeVal == offer {
			return specExact, true
		}
		if strings.HasPrefix(offer, rangeVal+"-") {
			return specPartialWildcard, true
		}

	case Token:
		if rangeVal == "*" {
			return specFullWildcard, true
		}
		if rangeVal == offer {
			return specExact, true
		}
	}

	return specNone, false
}

// rangeSpecificity ranks a range value on its own, independent of any
// offer.
func (h Header) rangeSpecificity(rangeVal string) int {
	switch h.scheme {
	case MediaType:
		if rangeVal == "*/*" {
			return specFullWildcard
		}
		if strings.HasSuffix(rangeVal, "/*") {
			return specPartialWildcard
		}
	case Language, Token:
		if rangeVal == "*" {
			return specFullWildcard
		}
	}
	return specExact
}

// parseQuality clamps anything unparsable or outside [0, 1] to 0.0,
// treating it as "not acceptable" rather than an error.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-12.4.2
func parseQuality(raw string) float64 {
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q < 0 || q > 1 {
		return 0.0
	}
	return q
}
