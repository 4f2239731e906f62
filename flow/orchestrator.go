package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JiwaniZakir/sentinel/browser"
	"github.com/JiwaniZakir/sentinel/login"
	"github.com/JiwaniZakir/sentinel/session"
)

// state tracks the orchestration state machine
type state int

const (
	stateNoSession state = iota
	stateTryingCookies
	stateTryingLogin
	stateAwaitingVerification
	stateSubmittingCode
	stateAuthenticated
)

func (s state) String() string {
	switch s {
	case stateNoSession:
		return "no_session"
	case stateTryingCookies:
		return "trying_cookies"
	case stateTryingLogin:
		return "trying_login"
	case stateAwaitingVerification:
		return "awaiting_verification"
	case stateSubmittingCode:
		return "submitting_code"
	default:
		return "authenticated"
	}
}

// SessionStore validates and captures reusable cookie state
type SessionStore interface {
	Load(d browser.Driver, st session.State) (int, bool)
	Save(d browser.Driver) (session.State, error)
}

// LoginExecutor drives credential and code submission
type LoginExecutor interface {
	Attempt(ctx context.Context, d browser.Driver, creds login.Credentials) (login.Outcome, error)
	SubmitCode(ctx context.Context, d browser.Driver, code string) (bool, error)
}

// CodeWaiter retrieves a time-boxed verification code
type CodeWaiter interface {
	AwaitCode(ctx context.Context, deadline time.Time) (string, bool)
}

// WaiterFactory builds a CodeWaiter for the mailbox credentials supplied with
// one request. Returning nil means no mailbox is reachable.
type WaiterFactory func(email, appPassword string) CodeWaiter

// LoginGate approves a credential login attempt right before it is made.
// Cookie-only runs never consult it.
type LoginGate func() error

// Orchestrator sequences cookie reuse, credential login, and out-of-band
// verification into one authenticate operation
type Orchestrator struct {
	store       SessionStore
	exec        LoginExecutor
	newWaiter   WaiterFactory
	gate        LoginGate
	codeTimeout time.Duration
	logger      *logrus.Logger
}

// NewOrchestrator wires the authentication components together. codeTimeout
// bounds the whole verification wait.
func NewOrchestrator(store SessionStore, exec LoginExecutor, newWaiter WaiterFactory, codeTimeout time.Duration, logger *logrus.Logger) *Orchestrator {
	if codeTimeout <= 0 {
		codeTimeout = 60 * time.Second
	}
	return &Orchestrator{
		store:       store,
		exec:        exec,
		newWaiter:   newWaiter,
		codeTimeout: codeTimeout,
		logger:      logger,
	}
}

// SetLoginGate installs an approval hook consulted before each credential
// login attempt
func (o *Orchestrator) SetLoginGate(gate LoginGate) {
	o.gate = gate
}

// Authenticate establishes an authenticated session on d and returns the
// captured cookie state so the caller can persist it for the next run. The
// driver is owned exclusively by this run; releasing it is the caller's job
// on every exit path.
func (o *Orchestrator) Authenticate(ctx context.Context, d browser.Driver, req Request) (session.State, *Failure) {
	runLog := o.logger.WithField("run_id", uuid.NewString())
	current := stateNoSession

	transition := func(next state) {
		runLog.WithFields(logrus.Fields{
			"from": current.String(),
			"to":   next.String(),
		}).Debug("Orchestrator transition")
		current = next
	}

	if len(req.Cookies) > 0 {
		transition(stateTryingCookies)
		if _, ok := o.store.Load(d, req.Cookies); ok {
			transition(stateAuthenticated)
			return o.capture(d, req.Cookies, runLog), nil
		}
		runLog.Info("Session cookies invalid, falling through to login")
	}

	if req.Email == "" || req.Password == "" {
		return nil, &Failure{Type: ErrAuthMissing, Reason: "linkedin credentials not provided"}
	}

	if o.gate != nil {
		if err := o.gate(); err != nil {
			return nil, &Failure{Type: ErrRateLimited, Reason: err.Error()}
		}
	}

	transition(stateTryingLogin)
	outcome, err := o.exec.Attempt(ctx, d, login.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, &Failure{Type: ErrAuthFailed, Reason: err.Error()}
	}

	switch {
	case outcome.State == login.Success:
		transition(stateAuthenticated)
		return o.capture(d, nil, runLog), nil

	case outcome.NeedsVerification():
		if req.GmailEmail == "" || req.GmailAppPassword == "" {
			return nil, &Failure{Type: ErrVerificationRequired, Reason: verificationReason(outcome)}
		}
		waiter := o.newWaiter(req.GmailEmail, req.GmailAppPassword)
		if waiter == nil {
			return nil, &Failure{Type: ErrVerificationError, Reason: "mailbox unavailable"}
		}

		transition(stateAwaitingVerification)
		code, ok := waiter.AwaitCode(ctx, time.Now().Add(o.codeTimeout))
		if !ok {
			return nil, &Failure{Type: ErrNoVerificationCode, Reason: "no verification code received"}
		}

		transition(stateSubmittingCode)
		submitted, err := o.exec.SubmitCode(ctx, d, code)
		if err != nil {
			return nil, &Failure{Type: ErrVerificationError, Reason: "failed to submit verification code: " + err.Error()}
		}
		if !submitted {
			return nil, &Failure{Type: ErrVerificationFailed, Reason: "verification code submission failed"}
		}
		transition(stateAuthenticated)
		return o.capture(d, nil, runLog), nil

	default:
		return nil, &Failure{Type: ErrAuthFailed, Reason: loginReason(outcome)}
	}
}

// capture re-extracts the current cookie state after a successful
// authentication; fallback preserves what the caller supplied when the
// extraction itself fails
func (o *Orchestrator) capture(d browser.Driver, fallback session.State, runLog *logrus.Entry) session.State {
	st, err := o.store.Save(d)
	if err != nil {
		runLog.WithError(err).Warn("Failed to capture session cookies after authentication")
		return fallback
	}
	return st
}

func verificationReason(outcome login.Outcome) string {
	if outcome.Detail != "" {
		return outcome.Detail
	}
	return "verification required but no mailbox credentials provided"
}

func loginReason(outcome login.Outcome) string {
	if outcome.State == login.UnknownFailure && outcome.Detail != "" {
		return "unexpected state after login attempt: " + outcome.Detail
	}
	if outcome.Detail != "" {
		return outcome.Detail
	}
	return "failed to login"
}
