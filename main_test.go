package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JiwaniZakir/sentinel/flow"
	"github.com/JiwaniZakir/sentinel/profile"
)

func TestSessionFilePath(t *testing.T) {
	path := sessionFilePath("./sessions", "user@example.com")
	assert.Equal(t, filepath.Join("./sessions", "user_at_example.com.json"), path)

	path = sessionFilePath("/var/lib/sentinel", "weird/../name@example.com")
	assert.Equal(t, "/var/lib/sentinel", filepath.Dir(path), "account names must not escape the session directory")
}

func TestInferScrapeErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want flow.ErrorType
	}{
		{"profile not found sentinel", profile.ErrNotFound, flow.ErrProfileNotFound},
		{"not authenticated sentinel", profile.ErrNotAuthenticated, flow.ErrAuthFailed},
		{"rate message", errors.New("request rate exceeded"), flow.ErrRateLimited},
		{"login message", errors.New("redirected to login"), flow.ErrAuthFailed},
		{"404 message", errors.New("page returned 404"), flow.ErrProfileNotFound},
		{"anything else", errors.New("element vanished"), flow.ErrScrapeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferScrapeErrorType(tt.err))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "(not set)", maskEmail(""))
	assert.Equal(t, "***", maskEmail("ab@example.com"))
	assert.Equal(t, "us**@example.com", maskEmail("user@example.com"))
}
