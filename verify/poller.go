package verify

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one candidate mailbox message
type Message struct {
	Subject string
	Body    string
}

// Mailbox is the capability the poller needs from a mail provider: list
// unseen messages from a sender, then disconnect
type Mailbox interface {
	UnseenFrom(sender string) ([]Message, error)
	Close() error
}

// Dialer opens a fresh mailbox connection for one poll tick
type Dialer func() (Mailbox, error)

// Poller retrieves a time-boxed verification code from an external mailbox
type Poller struct {
	dial          Dialer
	sender        string
	subjectMarker string
	interval      time.Duration
	logger        *logrus.Logger
}

// NewPoller creates a poller. sender filters candidate messages by origin,
// subjectMarker gates which subjects are inspected for a code.
func NewPoller(dial Dialer, sender, subjectMarker string, interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if subjectMarker == "" {
		subjectMarker = "verification"
	}
	return &Poller{
		dial:          dial,
		sender:        sender,
		subjectMarker: subjectMarker,
		interval:      interval,
		logger:        logger,
	}
}

// AwaitCode polls the mailbox until a verification code arrives or deadline
// elapses. Each tick opens and closes its own connection so no session is
// held past the mail server's idle timeout. An absent code at the deadline
// returns ("", false); that is a defined outcome, not an error.
func (p *Poller) AwaitCode(ctx context.Context, deadline time.Time) (string, bool) {
	p.logger.WithFields(logrus.Fields{
		"sender":   p.sender,
		"deadline": deadline.Format(time.RFC3339),
	}).Info("Waiting for verification code")

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return "", false
		}

		if code, ok := p.checkOnce(); ok {
			if time.Now().After(deadline) {
				p.logger.Warn("Verification code arrived after deadline, discarding")
				return "", false
			}
			p.logger.Info("Verification code extracted")
			return code, true
		}

		wait := p.interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(wait):
		}
	}

	p.logger.Info("No verification code received before deadline")
	return "", false
}

// checkOnce runs a single connect-scan-disconnect cycle
func (p *Poller) checkOnce() (string, bool) {
	mb, err := p.dial()
	if err != nil {
		p.logger.WithError(err).Warn("Mailbox connection failed")
		return "", false
	}
	defer mb.Close()

	messages, err := mb.UnseenFrom(p.sender)
	if err != nil {
		p.logger.WithError(err).Warn("Mailbox search failed")
		return "", false
	}

	for _, msg := range messages {
		if !strings.Contains(strings.ToLower(msg.Subject), p.subjectMarker) {
			continue
		}
		p.logger.WithField("subject", msg.Subject).Debug("Found verification email")
		if code, ok := ExtractCode(msg.Body); ok {
			return code, true
		}
	}
	return "", false
}
