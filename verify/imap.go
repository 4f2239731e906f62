package verify

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// IMAPConfig holds mailbox connection settings
type IMAPConfig struct {
	Address  string // host:port, TLS assumed
	Email    string
	Password string
}

// imapMailbox is the go-imap backed Mailbox implementation
type imapMailbox struct {
	client *client.Client
}

// DialIMAP connects and authenticates against an IMAP server over TLS.
// Intended for use as a Dialer: each poll tick gets a fresh connection.
func DialIMAP(cfg IMAPConfig) (Mailbox, error) {
	c, err := client.DialTLS(cfg.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}
	if err := c.Login(cfg.Email, cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("mailbox login failed: %w", err)
	}
	return &imapMailbox{client: c}, nil
}

// UnseenFrom selects the inbox and returns unseen messages whose From header
// matches sender
func (m *imapMailbox) UnseenFrom(sender string) ([]Message, error) {
	if _, err := m.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Header.Add("From", sender)

	ids, err := m.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("inbox search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	ch := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.Fetch(seqset, items, ch)
	}()

	var messages []Message
	for msg := range ch {
		subject := ""
		if msg.Envelope != nil {
			subject = msg.Envelope.Subject
		}
		body := readPlainText(msg.GetBody(section))
		messages = append(messages, Message{Subject: subject, Body: body})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("message fetch failed: %w", err)
	}
	return messages, nil
}

// Close logs out and drops the connection
func (m *imapMailbox) Close() error {
	return m.client.Logout()
}

// readPlainText extracts body text from a raw message, preferring the first
// text/plain part of a multi-part message and falling back to whatever part
// comes first
func readPlainText(r io.Reader) string {
	if r == nil {
		return ""
	}
	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}

	fallback := ""
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		contentType, _, _ := header.ContentType()
		if strings.HasPrefix(contentType, "text/plain") {
			return string(data)
		}
		if fallback == "" {
			fallback = string(data)
		}
	}
	return fallback
}
