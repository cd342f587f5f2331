package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "Adds https when scheme is missing",
			input: "google.com",
			want:  "https://google.com",
		},
		{
			name:  "Keeps http scheme",
			input: "http://example.com/a?b=c",
			want:  "http://example.com/a?b=c",
		},
		{
			name:  "Trims whitespace and lower-cases host",
			input: "  https://Example.COM/Path  ",
			want:  "https://example.com/Path",
		},
		{
			name:  "Scheme-less with path and query",
			input: "dub.co/blog?utm_source=x",
			want:  "https://dub.co/blog?utm_source=x",
		},
		{
			name:    "Empty string",
			input:   "   ",
			wantErr: ErrEmptyURL,
		},
		{
			name:    "Unsupported scheme",
			input:   "ftp://example.com/file",
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "Missing host",
			input:   "https://",
			wantErr: ErrInvalidHost,
		},
		{
			name:    "Space in host",
			input:   "https://exa mple.com",
			wantErr: ErrInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	inputs := []string{
		"google.com",
		"https://dub.sh",
		"HTTP://Example.com/a/b?c=d#e",
		" github.com/dubinc/dub ",
		"https://example.com:8443/path",
	}

	for _, in := range inputs {
		once, err := NormalizeURL(in)
		require.NoError(t, err, in)

		twice, err := NormalizeURL(once)
		require.NoError(t, err, once)
		assert.Equal(t, once, twice)
	}
}

func TestValidateDomain(t *testing.T) {
	valid := []string{"dub.sh", "example.com", "sub.example.co.uk", "a-b.io", "x1.y2"}
	for _, d := range valid {
		assert.NoError(t, ValidateDomain(d), d)
	}

	invalid := []string{"", "localhost", "-dub.sh", "dub-.sh", "dub..sh", "exa_mple.com", "https://dub.sh", "dub.sh/", ".dub.sh"}
	for _, d := range invalid {
		assert.ErrorIs(t, ValidateDomain(d), ErrInvalidDomain, d)
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList("a,b,c"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a, ,b", "a,c"))
	assert.Empty(t, SplitList())
	assert.Empty(t, SplitList(",, ,"))
}

func TestMergeTagRefs_DeprecatedFirstThenUnion(t *testing.T) {
	got := mergeTagRefs([]string{"x"}, []string{"a", "x", "b"})
	assert.Equal(t, []string{"x", "a", "b"}, got)
}

func TestErrors_WithPrefix(t *testing.T) {
	errs := Errors{missingField("url"), invalidType("", "a JSON object")}

	prefixed := errs.WithPrefix("[4]")

	assert.Equal(t, "[4].url", prefixed[0].Field)
	assert.Equal(t, "[4]", prefixed[1].Field)
	// original untouched
	assert.Equal(t, "url", errs[0].Field)
}

func TestAsErrors(t *testing.T) {
	var err error = Errors{missingField("url")}

	verrs, ok := AsErrors(err)

	require.True(t, ok)
	assert.True(t, verrs.Has(CodeMissingRequiredField))
	assert.Contains(t, err.Error(), "url is required")

	_, ok = AsErrors(ErrInvalidURL)
	assert.False(t, ok)
}
