package conditional

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseETag(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected ETag
		wantErr  bool
	}{
		{desc: "strong", input: `"xyzzy"`, expected: ETag{Tag: "xyzzy"}},
		{desc: "weak", input: `W/"xyzzy"`, expected: ETag{Tag: "xyzzy", Weak: true}},
		{desc: "empty tag", input: `""`, expected: ETag{Tag: ""}},
		{desc: "bare token tolerated", input: "xyzzy", expected: ETag{Tag: "xyzzy"}},
		{desc: "surrounding whitespace", input: ` "a" `, expected: ETag{Tag: "a"}},
		{desc: "empty input", input: "", wantErr: true},
		{desc: "weak prefix only", input: "W/", wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			e, err := ParseETag(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, e)
		})
	}
}

func TestETagString(t *testing.T) {
	assert.Equal(t, `"xyzzy"`, ETag{Tag: "xyzzy"}.String())
	assert.Equal(t, `W/"xyzzy"`, ETag{Tag: "xyzzy", Weak: true}.String())

	// Round-trip.
	e, err := ParseETag(ETag{Tag: `a"b`, Weak: true}.String())
	require.NoError(t, err)
	assert.Equal(t, ETag{Tag: `a"b`, Weak: true}, e)
}

func TestMatchComparisons(t *testing.T) {
	strong := ETag{Tag: "1"}
	weak := ETag{Tag: "1", Weak: true}
	other := ETag{Tag: "2"}

	assert.True(t, StrongMatch(strong, strong))
	assert.False(t, StrongMatch(strong, weak))
	assert.False(t, StrongMatch(weak, weak))
	assert.False(t, StrongMatch(strong, other))

	assert.True(t, WeakMatch(strong, weak))
	assert.True(t, WeakMatch(weak, weak))
	assert.False(t, WeakMatch(weak, other))
}

func TestParseTags(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Tags
	}{
		{
			desc:     "wildcard",
			input:    "*",
			expected: Tags{Any: true},
		},
		{
			desc:  "list",
			input: `"a", W/"b"`,
			expected: Tags{ETags: []ETag{
				{Tag: "a"},
				{Tag: "b", Weak: true},
			}},
		},
		{
			desc:  "quoted comma stays inside the tag",
			input: `"a,b", "c"`,
			expected: Tags{ETags: []ETag{
				{Tag: "a,b"},
				{Tag: "c"},
			}},
		},
		{
			desc:     "malformed members skipped",
			input:    `, "a", W/`,
			expected: Tags{ETags: []ETag{{Tag: "a"}}},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseTags(tc.input))
		})
	}
}

func TestTagsString(t *testing.T) {
	assert.Equal(t, "*", Tags{Any: true}.String())
	assert.Equal(t, `"a", W/"b"`, Tags{ETags: []ETag{
		{Tag: "a"}, {Tag: "b", Weak: true},
	}}.String())
}

func TestEvaluate(t *testing.T) {
	lastMod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	before := lastMod.Add(-time.Hour)
	after := lastMod.Add(time.Hour)
	strong := &ETag{Tag: "v1"}
	weak := &ETag{Tag: "v1", Weak: true}

	tags := func(raw string) *Tags {
		t := ParseTags(raw)
		return &t
	}

	testcases := []struct {
		desc     string
		p        Preconditions
		etag     *ETag
		lastMod  time.Time
		expected Verdict
	}{
		{
			desc:     "no preconditions",
			p:        Preconditions{SafeMethod: true},
			etag:     strong,
			lastMod:  lastMod,
			expected: Proceed,
		},
		{
			desc:     "if-match star passes",
			p:        Preconditions{IfMatch: tags("*"), SafeMethod: true},
			etag:     strong,
			lastMod:  lastMod,
			expected: Proceed,
		},
		{
			desc:     "if-match strong tag matches",
			p:        Preconditions{IfMatch: tags(`"v1"`)},
			etag:     strong,
			expected: Proceed,
		},
		{
			desc:     "if-match never matches weak response tag",
			p:        Preconditions{IfMatch: tags(`"v1"`)},
			etag:     weak,
			expected: PreconditionFailed,
		},
		{
			desc:     "if-match mismatch fails",
			p:        Preconditions{IfMatch: tags(`"other"`)},
			etag:     strong,
			expected: PreconditionFailed,
		},
		{
			desc: "if-match failure wins over if-none-match",
			p: Preconditions{
				IfMatch:     tags(`"other"`),
				IfNoneMatch: tags("*"),
				SafeMethod:  true,
			},
			etag:     strong,
			expected: PreconditionFailed,
		},
		{
			desc:     "if-unmodified-since holds",
			p:        Preconditions{IfUnmodifiedSince: after},
			lastMod:  lastMod,
			expected: Proceed,
		},
		{
			desc:     "if-unmodified-since violated",
			p:        Preconditions{IfUnmodifiedSince: before},
			lastMod:  lastMod,
			expected: PreconditionFailed,
		},
		{
			desc:     "if-unmodified-since skipped when if-match present",
			p:        Preconditions{IfMatch: tags("*"), IfUnmodifiedSince: before},
			etag:     strong,
			lastMod:  lastMod,
			expected: Proceed,
		},
		{
			desc:     "if-none-match star on GET",
			p:        Preconditions{IfNoneMatch: tags("*"), SafeMethod: true},
			etag:     strong,
			expected: NotModified,
		},
		{
			desc:     "if-none-match star on unsafe method",
			p:        Preconditions{IfNoneMatch: tags("*")},
			etag:     strong,
			expected: PreconditionFailed,
		},
		{
			desc:     "if-none-match weak comparison matches",
			p:        Preconditions{IfNoneMatch: tags(`W/"v1"`), SafeMethod: true},
			etag:     strong,
			expected: NotModified,
		},
		{
			desc:     "if-none-match no match proceeds",
			p:        Preconditions{IfNoneMatch: tags(`"other"`), SafeMethod: true},
			etag:     strong,
			expected: Proceed,
		},
		{
			desc: "if-none-match miss masks if-modified-since",
			p: Preconditions{
				IfNoneMatch:     tags(`"other"`),
				IfModifiedSince: after,
				SafeMethod:      true,
			},
			etag:     strong,
			lastMod:  lastMod,
			expected: Proceed,
		},
		{
			desc:     "if-modified-since not modified",
			p:        Preconditions{IfModifiedSince: after, SafeMethod: true},
			lastMod:  lastMod,
			expected: NotModified,
		},
		{
			desc:     "if-modified-since equal date is not modified",
			p:        Preconditions{IfModifiedSince: lastMod, SafeMethod: true},
			lastMod:  lastMod,
			expected: NotModified,
		},
		{
			desc:     "if-modified-since modified",
			p:        Preconditions{IfModifiedSince: before, SafeMethod: true},
			lastMod:  lastMod,
			expected: Proceed,
		},
		{
			desc:     "if-modified-since ignored on unsafe method",
			p:        Preconditions{IfModifiedSince: after},
			lastMod:  lastMod,
			expected: Proceed,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, Evaluate(tc.p, tc.etag, tc.lastMod))
		})
	}
}

func TestParseIfRange(t *testing.T) {
	lastMod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	strong := &ETag{Tag: "v1"}
	weak := &ETag{Tag: "v1", Weak: true}

	testcases := []struct {
		desc    string
		input   string
		etag    *ETag
		lastMod time.Time
		matches bool
	}{
		{
			desc:  "strong etag matches",
			input: `"v1"`, etag: strong, matches: true,
		},
		{
			desc:  "weak etag never matches",
			input: `W/"v1"`, etag: strong, matches: false,
		},
		{
			desc:  "weak response tag never matches",
			input: `"v1"`, etag: weak, matches: false,
		},
		{
			desc:  "date not after matches",
			input: "Fri, 01 Mar 2024 13:00:00 GMT", lastMod: lastMod, matches: true,
		},
		{
			desc:  "date before last-modified does not match",
			input: "Fri, 01 Mar 2024 11:00:00 GMT", lastMod: lastMod, matches: false,
		},
		{
			desc:  "garbage never matches",
			input: "not a validator", etag: strong, lastMod: lastMod, matches: false,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := ParseIfRange(tc.input)
			assert.Equal(t, tc.matches, r.Matches(tc.etag, tc.lastMod))
		})
	}
}

func TestIfRangeAbsentMatches(t *testing.T) {
	var r IfRange
	assert.True(t, r.Matches(nil, time.Time{}))
}
