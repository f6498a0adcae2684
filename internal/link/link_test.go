package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestCanonicalize verifies URL normalisation rules.
*/
func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing slash stripped", "https://example.com/page/", "https://example.com/page"},
		{"scheme defaults to https", "example.com", "https://example.com"},
		{"scheme lowercased", "HTTP://example.com", "http://example.com"},
		{"host lowercased", "https://Example.COM/Path", "https://example.com/Path"},
		{"whitespace trimmed", "  https://example.com  ", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty rejected", func(t *testing.T) {
		_, err := Canonicalize("   ")
		require.Error(t, err)
	})

	t.Run("unsupported scheme rejected", func(t *testing.T) {
		_, err := Canonicalize("ftp://example.com")
		require.Error(t, err)
	})
}
