package httpdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tz := time.FixedZone("GMT", 0)
	expected := time.Date(1994, 11, 6, 8, 49, 37, 0, tz)

	testcases := []struct {
		desc    string
		input   string
		useTz   *time.Location
		wantErr bool
	}{
		{
			desc:  "IMF-fixdate",
			input: "Sun, 06 Nov 1994 08:49:37 GMT",
		},
		{
			desc:  "obsolete RFC 850 format",
			input: "Sunday, 06-Nov-94 08:49:37 GMT",
		},
		{
			// It has no timezone info.
			// So we'll manually add it in loop below.
			desc:  "ANSI C's asctime() format",
			input: "Sun Nov  6 08:49:37 1994",
			useTz: tz,
		},
		{
			desc:    "datetime",
			input:   "1994-11-06 08:49:37",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			tm, err := Parse(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			if tc.useTz != nil {
				tm = tm.In(tc.useTz)
			}

			assert.NoError(t, err)
			assert.Equal(t, expected, tm)
		})
	}
}

func TestFormat(t *testing.T) {
	tm := time.Date(1994, 11, 6, 8, 49, 37, 0, time.UTC)
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", Format(tm))

	// Non-UTC input is converted.
	tm = tm.In(time.FixedZone("KST", 9*60*60))
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", Format(tm))
}

func TestRoundTrip(t *testing.T) {
	tm := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)

	parsed, err := Parse(Format(tm))
	assert.NoError(t, err)
	assert.True(t, parsed.Equal(tm))
}
