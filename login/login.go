package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JiwaniZakir/sentinel/browser"
)

// Credentials holds the account identity and secret. The secret is never
// logged in cleartext.
type Credentials struct {
	Email    string
	Password string
}

const (
	emailSelector    = "#username"
	passwordSelector = "#password"
	submitSelector   = "button[type='submit']"
)

// pinSelectors are tried in order when locating the verification code input
var pinSelectors = []string{
	"#input__email_verification_pin",
	"input[name='pin']",
}

// errorSelectors are the field-level error elements scanned after an attempt
var errorSelectors = []string{
	".form__label--error",
	"#error-for-password",
	"#error-for-username",
	".alert-content",
}

// Executor drives credential submission and classifies the resulting page
type Executor struct {
	loginURL    string
	fieldWait   time.Duration
	settleDelay time.Duration
	logger      *logrus.Logger
}

// NewExecutor creates a login executor. fieldWait bounds element lookups,
// settleDelay is the fixed wait after a submit before the page is read.
func NewExecutor(loginURL string, fieldWait, settleDelay time.Duration, logger *logrus.Logger) *Executor {
	if fieldWait <= 0 {
		fieldWait = 10 * time.Second
	}
	if settleDelay <= 0 {
		settleDelay = 5 * time.Second
	}
	return &Executor{
		loginURL:    loginURL,
		fieldWait:   fieldWait,
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// Attempt navigates to the login resource, submits credentials, and
// classifies the page the site lands on. Driver-level interaction failures
// are downgraded to classified outcomes; the returned error is reserved for
// an unusable browsing context.
func (e *Executor) Attempt(ctx context.Context, d browser.Driver, creds Credentials) (Outcome, error) {
	e.logger.WithField("email", maskEmail(creds.Email)).Info("Starting login attempt")

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if err := d.Navigate(e.loginURL); err != nil {
		return Outcome{}, fmt.Errorf("failed to navigate to login page: %w", err)
	}

	if loc := d.Location(); LooksAuthenticated(loc) {
		e.logger.WithField("url", loc).Info("Already logged in - detected by URL")
		return Outcome{State: Success}, nil
	}

	if err := d.WaitElement(emailSelector, e.fieldWait); err != nil {
		// The login form never appeared; the site may have routed the
		// navigation straight into a checkpoint or challenge screen.
		e.logger.WithError(err).Warn("Login form not found, classifying current page")
		return Classify(e.snapshot(d)), nil
	}

	if err := e.fillField(d, emailSelector, creds.Email); err != nil {
		return Outcome{State: UnknownFailure, Detail: "could not enter email - anti-automation blocking input"}, nil
	}
	if err := sleep(ctx, e.settleDelay/5); err != nil {
		return Outcome{}, err
	}

	if err := d.WaitElement(passwordSelector, e.fieldWait/2); err != nil {
		return Classify(e.snapshot(d)), nil
	}
	if err := e.fillField(d, passwordSelector, creds.Password); err != nil {
		return Outcome{State: UnknownFailure, Detail: "could not enter password - anti-automation blocking input"}, nil
	}

	e.logger.Info("Submitting login form")
	if err := d.Click(submitSelector); err != nil {
		return Outcome{State: UnknownFailure, Detail: "could not click login button"}, nil
	}

	if err := sleep(ctx, e.settleDelay); err != nil {
		return Outcome{}, err
	}

	snap := e.snapshot(d)
	outcome := Classify(snap)
	e.logger.WithFields(logrus.Fields{
		"url":     snap.Location,
		"outcome": outcome.State.String(),
	}).Info("Login attempt classified")
	return outcome, nil
}

// SubmitCode writes an out-of-band verification code into the code input,
// submits, and reports whether the destination resolves to a post-login area
func (e *Executor) SubmitCode(ctx context.Context, d browser.Driver, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var selector string
	for _, sel := range pinSelectors {
		if err := d.WaitElement(sel, e.fieldWait/2); err == nil {
			selector = sel
			break
		}
	}
	if selector == "" {
		return false, fmt.Errorf("verification code input not found")
	}

	if err := e.fillField(d, selector, code); err != nil {
		return false, fmt.Errorf("failed to enter verification code: %w", err)
	}
	if err := d.Click(submitSelector); err != nil {
		return false, fmt.Errorf("failed to submit verification code: %w", err)
	}

	if err := sleep(ctx, e.settleDelay); err != nil {
		return false, err
	}

	loc := d.Location()
	ok := LooksAuthenticated(loc)
	e.logger.WithFields(logrus.Fields{
		"url": loc,
		"ok":  ok,
	}).Info("Verification code submitted")
	return ok, nil
}

// fillField writes value through script injection, confirms it with a
// read-back, and retries once through the simulated keystroke path before
// declaring the field failed
func (e *Executor) fillField(d browser.Driver, selector, value string) error {
	if err := d.SetValue(selector, value); err != nil {
		e.logger.WithField("selector", selector).WithError(err).Warn("Script value injection failed")
	}

	got, err := d.ReadValue(selector)
	if err == nil && got != "" {
		return nil
	}

	e.logger.WithField("selector", selector).Warn("Value read-back empty, retrying with keystroke input")
	if err := d.TypeValue(selector, value); err != nil {
		return fmt.Errorf("keystroke fallback failed for %s: %w", selector, err)
	}

	got, err = d.ReadValue(selector)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", selector, err)
	}
	if got == "" {
		return fmt.Errorf("field %s rejected both injection paths", selector)
	}
	return nil
}

// snapshot captures all classification signals in one pass so the rules run
// against a consistent view of the page
func (e *Executor) snapshot(d browser.Driver) Snapshot {
	snap := Snapshot{
		Location:    d.Location(),
		Title:       d.Title(),
		BodyExcerpt: d.BodyExcerpt(2000),
	}
	for _, sel := range errorSelectors {
		if text, ok := d.ElementText(sel); ok && text != "" {
			snap.ErrorText = text
			break
		}
	}
	return snap
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func maskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || len(parts[0]) <= 2 {
		return "***"
	}
	return parts[0][:2] + strings.Repeat("*", len(parts[0])-2) + "@" + parts[1]
}
