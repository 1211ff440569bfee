package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimQuotes(tt.input))
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no escaped quotes", "hello", "hello"},
		{"single escaped quote", `he""llo`, `he"llo`},
		{"multiple escaped quotes", `a""b""c`, `a"b"c`},
		{"consecutive escaped", `a""""b`, `a""b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FixEscapeQuotes(tt.input))
		})
	}
}

func TestCleanArgs(t *testing.T) {
	args := []string{` "Party" `, `"Random! ""Bram"" rolls 12"`, "plain"}
	got := CleanArgs(args)
	assert.Equal(t, []string{"Party", `Random! "Bram" rolls 12`, "plain"}, got)
}

func TestParseToggle(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"true", true, false},
		{"ON", true, false},
		{"yes", true, false},
		{"0", false, false},
		{"False", false, false},
		{"off", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseToggle(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
