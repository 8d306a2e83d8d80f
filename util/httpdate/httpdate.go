// Package httpdate parses and formats HTTP-date values.
package httpdate

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// Preferred format: IMF-fixdate
	imfFixDateFormat = time.RFC1123
	// Obsolete RFC 850 format
	rfc850DateFormat = time.RFC850
	// Obsolete asctime format
	asctimeDateFormat = time.ANSIC

	// IMF-fixdate pinned to GMT for output. time.RFC1123 would render the
	// zone as "UTC" after t.UTC().
	imfFixDateGMT = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Parse accepts the three HTTP-date forms, preferred format first.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.7
func Parse(raw string) (time.Time, error) {
	layouts := []string{imfFixDateFormat, rfc850DateFormat, asctimeDateFormat}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Errorf("invalid time format: %q", raw)
}

// Format renders t as an IMF-fixdate in GMT.
func Format(t time.Time) string {
	return t.UTC().Format(imfFixDateGMT)
}
