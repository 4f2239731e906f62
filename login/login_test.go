package login

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JiwaniZakir/sentinel/browser"
)

const (
	testLoginURL = "https://www.linkedin.com/login"
	feedURL      = "https://www.linkedin.com/feed/"
)

// fakeDriver scripts driver behavior for one attempt
type fakeDriver struct {
	location       string
	body           string
	values         map[string]string
	present        map[string]bool
	elementText    map[string]string
	dropSetValue   map[string]bool
	failTypeValue  bool
	clickLocations map[string]string
	navigations    []string
	navLocation    map[string]string
	typedFields    []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		values:         make(map[string]string),
		present:        make(map[string]bool),
		elementText:    make(map[string]string),
		dropSetValue:   make(map[string]bool),
		clickLocations: make(map[string]string),
		navLocation:    make(map[string]string),
	}
}

func (f *fakeDriver) Navigate(url string) error {
	f.navigations = append(f.navigations, url)
	if loc, ok := f.navLocation[url]; ok {
		f.location = loc
	} else {
		f.location = url
	}
	return nil
}

func (f *fakeDriver) Location() string { return f.location }

func (f *fakeDriver) Title() string { return "" }

func (f *fakeDriver) BodyExcerpt(limit int) string { return f.body }

func (f *fakeDriver) WaitElement(selector string, timeout time.Duration) error {
	if f.present[selector] {
		return nil
	}
	return assert.AnError
}

func (f *fakeDriver) ElementText(selector string) (string, bool) {
	text, ok := f.elementText[selector]
	return text, ok
}

func (f *fakeDriver) ElementsText(selector string) []string { return nil }

func (f *fakeDriver) SetValue(selector, value string) error {
	if !f.dropSetValue[selector] {
		f.values[selector] = value
	}
	return nil
}

func (f *fakeDriver) ReadValue(selector string) (string, error) {
	return f.values[selector], nil
}

func (f *fakeDriver) TypeValue(selector, value string) error {
	if f.failTypeValue {
		return assert.AnError
	}
	f.typedFields = append(f.typedFields, selector)
	f.values[selector] = value
	return nil
}

func (f *fakeDriver) Click(selector string) error {
	if loc, ok := f.clickLocations[selector]; ok {
		f.location = loc
	}
	return nil
}

func (f *fakeDriver) SetCookies(cookies []browser.Cookie) (int, error) { return len(cookies), nil }

func (f *fakeDriver) Cookies() ([]browser.Cookie, error) { return nil, nil }

func (f *fakeDriver) Close() error { return nil }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testExecutor() *Executor {
	return NewExecutor(testLoginURL, 10*time.Millisecond, 5*time.Millisecond, testLogger())
}

func TestAttemptSuccess(t *testing.T) {
	d := newFakeDriver()
	d.present[emailSelector] = true
	d.present[passwordSelector] = true
	d.clickLocations[submitSelector] = feedURL

	outcome, err := testExecutor().Attempt(context.Background(), d, Credentials{Email: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, Success, outcome.State)
	assert.Equal(t, "user@example.com", d.values[emailSelector])
	assert.Equal(t, "secret", d.values[passwordSelector])
	assert.Empty(t, d.typedFields, "script injection accepted, keystroke fallback should not run")
}

func TestAttemptAlreadyLoggedIn(t *testing.T) {
	d := newFakeDriver()
	d.navLocation[testLoginURL] = feedURL

	outcome, err := testExecutor().Attempt(context.Background(), d, Credentials{Email: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, Success, outcome.State)
	assert.Empty(t, d.values, "no credentials should be written")
}

func TestAttemptReadBackTriggersKeystrokeFallback(t *testing.T) {
	d := newFakeDriver()
	d.present[emailSelector] = true
	d.present[passwordSelector] = true
	d.dropSetValue[emailSelector] = true
	d.clickLocations[submitSelector] = feedURL

	outcome, err := testExecutor().Attempt(context.Background(), d, Credentials{Email: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, Success, outcome.State)
	assert.Contains(t, d.typedFields, emailSelector)
	assert.Equal(t, "user@example.com", d.values[emailSelector])
}

func TestAttemptFieldRejectsBothPaths(t *testing.T) {
	d := newFakeDriver()
	d.present[emailSelector] = true
	d.dropSetValue[emailSelector] = true
	d.failTypeValue = true

	outcome, err := testExecutor().Attempt(context.Background(), d, Credentials{Email: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, UnknownFailure, outcome.State)
	assert.Contains(t, outcome.Detail, "email")
}

func TestAttemptFormMissingClassifiesCurrentPage(t *testing.T) {
	d := newFakeDriver()
	d.navLocation[testLoginURL] = "https://www.linkedin.com/checkpoint/challenge/x"

	outcome, err := testExecutor().Attempt(context.Background(), d, Credentials{Email: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, CheckpointRequired, outcome.State)
}

func TestAttemptInvalidCredentials(t *testing.T) {
	d := newFakeDriver()
	d.present[emailSelector] = true
	d.present[passwordSelector] = true
	d.clickLocations[submitSelector] = testLoginURL
	d.elementText["#error-for-password"] = "That's not the right password"

	outcome, err := testExecutor().Attempt(context.Background(), d, Credentials{Email: "user@example.com", Password: "nope"})
	require.NoError(t, err)

	assert.Equal(t, InvalidCredentials, outcome.State)
	assert.Equal(t, "That's not the right password", outcome.Detail)
}

func TestAttemptCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testExecutor().Attempt(ctx, newFakeDriver(), Credentials{Email: "user@example.com", Password: "secret"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitCode(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		want        bool
	}{
		{name: "code accepted", destination: feedURL, want: true},
		{name: "code rejected", destination: "https://www.linkedin.com/checkpoint/challenge/x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			d.present["#input__email_verification_pin"] = true
			d.clickLocations[submitSelector] = tt.destination

			ok, err := testExecutor().SubmitCode(context.Background(), d, "482913")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "482913", d.values["#input__email_verification_pin"])
		})
	}
}

func TestSubmitCodeNoInput(t *testing.T) {
	d := newFakeDriver()

	_, err := testExecutor().SubmitCode(context.Background(), d, "482913")
	assert.Error(t, err)
}
