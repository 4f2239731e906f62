package login

import "strings"

// State identifies the terminal classification of one login attempt
type State int

const (
	Success State = iota
	CheckpointRequired
	CaptchaRequired
	TwoFactorRequired
	VerificationRequired
	InvalidCredentials
	UnknownFailure
)

// String returns a stable label for logs and audit rows
func (s State) String() string {
	switch s {
	case Success:
		return "success"
	case CheckpointRequired:
		return "checkpoint_required"
	case CaptchaRequired:
		return "captcha_required"
	case TwoFactorRequired:
		return "two_factor_required"
	case VerificationRequired:
		return "verification_required"
	case InvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown_failure"
	}
}

// Outcome is the result of classifying one login attempt. Produced exactly
// once per attempt and immutable after that.
type Outcome struct {
	State  State
	Detail string
}

// NeedsVerification reports whether the outcome calls for an out-of-band
// verification code
func (o Outcome) NeedsVerification() bool {
	switch o.State {
	case CheckpointRequired, TwoFactorRequired, VerificationRequired:
		return true
	}
	return false
}

// Snapshot is the set of observable signals captured from the page in one
// read, before any classification runs
type Snapshot struct {
	Location    string
	Title       string
	BodyExcerpt string
	ErrorText   string
}

// LooksAuthenticated reports whether location resolves to a post-login area
func LooksAuthenticated(location string) bool {
	return strings.Contains(location, "linkedin.com/feed") ||
		strings.Contains(location, "linkedin.com/in/") ||
		strings.Contains(location, "mynetwork") ||
		strings.Contains(location, "linkedin.com/jobs") ||
		strings.Contains(location, "linkedin.com/search")
}

// LooksBlocked reports whether location resolves to a login, checkpoint, or
// challenge screen. A replayed session is usable only while this is false for
// its most recent navigation.
func LooksBlocked(location string) bool {
	return strings.Contains(location, "/login") ||
		strings.Contains(location, "checkpoint") ||
		strings.Contains(location, "challenge")
}

// Classify maps a page snapshot onto an Outcome by evaluating an ordered rule
// list. Explicit negative markers (checkpoint, challenge, two-step) outrank
// the weaker still-on-login-page inference, so the order below is load-bearing.
func Classify(snap Snapshot) Outcome {
	loc := snap.Location

	if LooksAuthenticated(loc) {
		return Outcome{State: Success}
	}

	if strings.Contains(loc, "checkpoint") {
		return Outcome{State: CheckpointRequired, Detail: "security checkpoint - account may need verification"}
	}

	if strings.Contains(loc, "captcha") || strings.Contains(loc, "challenge") {
		return Outcome{State: CaptchaRequired, Detail: "CAPTCHA challenge - site is blocking automated access"}
	}

	if strings.Contains(loc, "two-step-verification") || strings.Contains(loc, "two-factor") {
		return Outcome{State: TwoFactorRequired, Detail: "two-factor authentication required"}
	}

	if strings.Contains(loc, "verification") {
		return Outcome{State: VerificationRequired, Detail: "email verification required"}
	}

	if snap.ErrorText != "" {
		return Outcome{State: InvalidCredentials, Detail: snap.ErrorText}
	}

	if strings.Contains(loc, "/login") {
		body := strings.ToLower(snap.BodyExcerpt)
		switch {
		case strings.Contains(body, "incorrect") || strings.Contains(body, "wrong"):
			return Outcome{State: InvalidCredentials, Detail: "incorrect email or password"}
		case strings.Contains(body, "recognize"):
			return Outcome{State: InvalidCredentials, Detail: "account email not recognized"}
		}
		return Outcome{State: InvalidCredentials, Detail: "login failed - still on login page"}
	}

	return Outcome{State: UnknownFailure, Detail: loc}
}
