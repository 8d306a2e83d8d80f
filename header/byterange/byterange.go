// Package byterange parses Range requests and computes Content-Range
// responses for the bytes unit.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-14
package byterange

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/whiteroses/webob/header"
	"github.com/whiteroses/webob/util/rule"
)

// ErrUnsatisfiable means no requested range overlaps the representation.
// The caller should answer 416.
var ErrUnsatisfiable = errors.New("no byte range is satisfiable")

// Spec is a single range in inclusive wire notation. Nil Start means a
// suffix range (-N); nil End means open-ended (N-). Start <= End holds
// when both are set.
type Spec struct {
	Start *int64
	End   *int64
}

// Ranges is a parsed Range header value. An empty Ranges (malformed or
// non-bytes input) resolves to ErrUnsatisfiable.
type Ranges struct {
	specs []Spec
}

// Specs returns the parsed specs in request order.
func (r Ranges) Specs() []Spec {
	clone := make([]Spec, len(r.specs))
	copy(clone, r.specs)
	return clone
}

// IsEmpty reports whether nothing valid was parsed.
func (r Ranges) IsEmpty() bool { return len(r.specs) == 0 }

// ParseRange parses a Range value. Only the bytes unit is understood; any
// other unit, or a spec that is not start-end, start-, or -suffix, yields
// a value that resolves to unsatisfiable rather than an error. Individual
// malformed specs in an otherwise valid list are skipped.
func ParseRange(raw string) Ranges {
	raw = strings.TrimFunc(raw, rule.IsWhitespace)

	set, ok := cutFold(raw, "bytes=")
	if !ok {
		return Ranges{}
	}

	var ranges Ranges
	for _, item := range header.Parse(set).Items {
		spec, ok := parseSpec(item.Value)
		if !ok {
			continue
		}
		ranges.specs = append(ranges.specs, spec)
	}

	return ranges
}

func parseSpec(s string) (Spec, bool) {
	first, last, ok := strings.Cut(s, "-")
	if !ok {
		return Spec{}, false
	}
	first = strings.TrimFunc(first, rule.IsWhitespace)
	last = strings.TrimFunc(last, rule.IsWhitespace)

	var spec Spec
	if first != "" {
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return Spec{}, false
		}
		spec.Start = &start
	}
	if last != "" {
		end, err := strconv.ParseInt(last, 10, 64)
		if err != nil || end < 0 {
			return Spec{}, false
		}
		spec.End = &end
	}

	switch {
	case spec.Start == nil && spec.End == nil:
		// Lone dash.
		return Spec{}, false
	case spec.Start == nil && *spec.End == 0:
		// A zero-length suffix (-0) selects nothing.
		return Spec{}, false
	case spec.Start != nil && spec.End != nil && *spec.Start > *spec.End:
		return Spec{}, false
	}

	return spec, true
}

// Resolved is one range in half-open notation, ready for range-aware
// storage: [Start, Stop) with Stop <= total.
type Resolved struct {
	Start int64
	Stop  int64
}

// Resolve computes absolute bounds against the representation length.
// Specs entirely beyond total are dropped; when every spec drops (or
// nothing was parsed) the result is ErrUnsatisfiable. A negative total is
// caller misuse and reported as a distinct error. Request order is
// preserved for multipart rendering.
func (r Ranges) Resolve(total int64) ([]Resolved, error) {
	if total < 0 {
		return nil, errors.Errorf("negative representation length: %d", total)
	}

	var resolved []Resolved
	for _, spec := range r.specs {
		switch {
		case spec.Start == nil:
			// Suffix: last *End bytes.
			n := *spec.End
			if n > total {
				n = total
			}
			if n == 0 {
				continue
			}
			resolved = append(resolved, Resolved{Start: total - n, Stop: total})

		case *spec.Start >= total:
			// Entirely beyond the representation.
			continue

		case spec.End == nil:
			resolved = append(resolved, Resolved{Start: *spec.Start, Stop: total})

		default:
			stop := *spec.End + 1
			if stop > total {
				stop = total
			}
			resolved = append(resolved, Resolved{Start: *spec.Start, Stop: stop})
		}
	}

	if len(resolved) == 0 {
		return nil, ErrUnsatisfiable
	}
	return resolved, nil
}

// ContentRange resolves the first satisfiable spec, the common single-range
// case used by conditional responses.
func (r Ranges) ContentRange(total int64) (ContentRange, error) {
	resolved, err := r.Resolve(total)
	if err != nil {
		return ContentRange{}, err
	}
	return ContentRange{
		Start: resolved[0].Start,
		Stop:  resolved[0].Stop,
		Total: total,
	}, nil
}

// String re-serializes the parsed specs to wire form.
func (r Ranges) String() string {
	if len(r.specs) == 0 {
		return ""
	}

	parts := make([]string, len(r.specs))
	for idx, spec := range r.specs {
		b := new(strings.Builder)
		if spec.Start != nil {
			b.WriteString(strconv.FormatInt(*spec.Start, 10))
		}
		b.WriteByte('-')
		if spec.End != nil {
			b.WriteString(strconv.FormatInt(*spec.End, 10))
		}
		parts[idx] = b.String()
	}
	return "bytes=" + strings.Join(parts, ", ")
}

// ContentRange describes a Content-Range response value in half-open
// notation. Start == -1 stands for the unsatisfied-range form (bytes */N);
// Total == -1 stands for an unknown complete length (bytes 0-99/*).
type ContentRange struct {
	Start int64
	Stop  int64
	Total int64
}

// String renders the wire form, e.g. "bytes 0-99/1000".
func (c ContentRange) String() string {
	b := new(strings.Builder)
	b.WriteString("bytes ")

	if c.Start < 0 {
		b.WriteByte('*')
	} else {
		b.WriteString(strconv.FormatInt(c.Start, 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(c.Stop-1, 10))
	}

	b.WriteByte('/')
	if c.Total < 0 {
		b.WriteByte('*')
	} else {
		b.WriteString(strconv.FormatInt(c.Total, 10))
	}

	return b.String()
}

// ParseContentRange parses a Content-Range value back into half-open
// notation. Unlike request parsing this returns an error: Content-Range
// is produced by servers, so a malformed value is a bug worth surfacing.
func ParseContentRange(raw string) (ContentRange, error) {
	raw = strings.TrimFunc(raw, rule.IsWhitespace)

	rest, ok := cutFold(raw, "bytes ")
	if !ok {
		return ContentRange{}, errors.Errorf("unsupported content-range unit: %q", raw)
	}

	rangePart, totalPart, ok := strings.Cut(rest, "/")
	if !ok {
		return ContentRange{}, errors.Errorf("missing complete-length: %q", raw)
	}

	c := ContentRange{Start: -1, Stop: -1, Total: -1}

	if totalPart != "*" {
		total, err := strconv.ParseInt(totalPart, 10, 64)
		if err != nil || total < 0 {
			return ContentRange{}, errors.Errorf("malformed complete-length: %q", totalPart)
		}
		c.Total = total
	}

	if rangePart != "*" {
		first, last, ok := strings.Cut(rangePart, "-")
		if !ok {
			return ContentRange{}, errors.Errorf("malformed range part: %q", rangePart)
		}
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return ContentRange{}, errors.Errorf("malformed range start: %q", first)
		}
		end, err := strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return ContentRange{}, errors.Errorf("malformed range end: %q", last)
		}
		c.Start, c.Stop = start, end+1
	}

	if c.Start < 0 && c.Total < 0 {
		return ContentRange{}, errors.New("content-range needs a range or a length")
	}
	return c, nil
}

func cutFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
