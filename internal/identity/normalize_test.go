package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Anna.Berg@Example.COM ", "anna.berg@example.com"},
		{"anna@example.com", "anna@example.com"},
		{"anna@@example.com", ""},
		{"anna", ""},
		{"@example.com", ""},
		{"anna@", ""},
		{"anna@localhost", ""},
		{"anna@example.", ""},
		{"anna berg@example.com", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeEmail(tc.in), "input %q", tc.in)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+49 (171) 234-5678", "491712345678"},
		{"0171 2345678", "1712345678"},
		{"00491712345678", "491712345678"},
		{"12345", ""},
		{"no digits", ""},
		{"", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizePhone(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "anna berg", NormalizeName("  Anna\t Berg "))
	require.Equal(t, "anna berg", NormalizeName("ANNA BERG"))
	require.Equal(t, "", NormalizeName("   "))
}
