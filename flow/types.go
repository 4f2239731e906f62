package flow

import (
	"github.com/JiwaniZakir/sentinel/profile"
	"github.com/JiwaniZakir/sentinel/session"
)

// ErrorType is the process-boundary error vocabulary. Values are part of the
// wire contract with the calling process and must not change.
type ErrorType string

const (
	ErrAuthMissing          ErrorType = "AUTH_MISSING"
	ErrAuthFailed           ErrorType = "AUTH_FAILED"
	ErrVerificationRequired ErrorType = "VERIFICATION_REQUIRED"
	ErrVerificationFailed   ErrorType = "VERIFICATION_FAILED"
	ErrVerificationError    ErrorType = "VERIFICATION_ERROR"
	ErrNoVerificationCode   ErrorType = "NO_VERIFICATION_CODE"
	ErrRateLimited          ErrorType = "RATE_LIMITED"
	ErrProfileNotFound      ErrorType = "PROFILE_NOT_FOUND"
	ErrScrapeError          ErrorType = "SCRAPE_ERROR"
	ErrInvalidURL           ErrorType = "INVALID_URL"
	ErrInvalidInput         ErrorType = "INVALID_INPUT"
	ErrInputError           ErrorType = "INPUT_ERROR"
)

// Request is the JSON request object read from the process boundary. Field
// names preserve the established wire contract.
type Request struct {
	URL              string        `json:"url"`
	Email            string        `json:"email,omitempty"`
	Password         string        `json:"password,omitempty"`
	Cookies          session.State `json:"cookies,omitempty"`
	GmailEmail       string        `json:"gmail_email,omitempty"`
	GmailAppPassword string        `json:"gmail_app_password,omitempty"`
}

// Response is the JSON response object written to stdout. Process exit status
// is 0 iff Success.
type Response struct {
	Success     bool             `json:"success"`
	ScrapedAt   string           `json:"scraped_at,omitempty"`
	LinkedInURL string           `json:"linkedin_url,omitempty"`
	Data        *profile.Profile `json:"data,omitempty"`
	Cookies     session.State    `json:"cookies,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorType   ErrorType        `json:"error_type,omitempty"`
}

// Fail builds a failure response
func Fail(errType ErrorType, message string) Response {
	return Response{Success: false, Error: message, ErrorType: errType}
}

// Failure is a typed terminal authentication failure
type Failure struct {
	Type   ErrorType
	Reason string
}

// Error implements the error interface
func (f *Failure) Error() string {
	return f.Reason
}
