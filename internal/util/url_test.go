package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRedirectSafe(t *testing.T) {
	const baseURL = "http://localhost:8080"

	tests := []struct {
		name     string
		redirect string
		want     bool
	}{
		{name: "empty", redirect: "", want: true},
		{name: "relative path", redirect: "/org/mattpm/activity", want: true},
		{name: "relative with query", redirect: "/org/mattpm?tab=commits", want: true},
		{name: "protocol relative", redirect: "//evil.com", want: false},
		{name: "backslash trick", redirect: "/\\evil.com", want: false},
		{name: "header injection", redirect: "/ok\r\nSet-Cookie: x=1", want: false},
		{name: "same host absolute", redirect: "http://localhost:8080/org/mattpm", want: true},
		{name: "foreign host", redirect: "http://evil.com/org/mattpm", want: false},
		{name: "javascript scheme", redirect: "javascript:alert(1)", want: false},
		{name: "data scheme", redirect: "data:text/html,hi", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRedirectSafe(tt.redirect, baseURL))
		})
	}
}

func TestStripQueryParam(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		param string
		want  string
	}{
		{
			name:  "removes token",
			in:    "/org/mattpm/activity?token=abc&tab=commits",
			param: "token",
			want:  "/org/mattpm/activity?tab=commits",
		},
		{
			name:  "only token leaves clean path",
			in:    "/org/mattpm?token=abc",
			param: "token",
			want:  "/org/mattpm",
		},
		{
			name:  "absent param unchanged",
			in:    "/org/mattpm?tab=commits",
			param: "token",
			want:  "/org/mattpm?tab=commits",
		},
		{
			name:  "no query unchanged",
			in:    "/org/mattpm",
			param: "token",
			want:  "/org/mattpm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripQueryParam(tt.in, tt.param))
		})
	}
}

func TestCryptoRandomString(t *testing.T) {
	s1, err := CryptoRandomString(32)
	assert.NoError(t, err)
	assert.Len(t, s1, 32)

	s2, err := CryptoRandomString(32)
	assert.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}

func TestSHA256Hex(t *testing.T) {
	h := SHA256Hex("token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, SHA256Hex("token"))
	assert.NotEqual(t, h, SHA256Hex("other"))
}
