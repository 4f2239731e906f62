package browser

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Cookie is the serializable form of one site-issued session cookie. Field
// names match the wire shape callers persist between runs.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expiry,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
}

// Driver is the capability set the rest of the system needs from a browsing
// context: navigate, read state, inject values, manage cookies. It is owned
// exclusively by one orchestration run.
type Driver interface {
	Navigate(url string) error
	Location() string
	Title() string
	BodyExcerpt(limit int) string
	WaitElement(selector string, timeout time.Duration) error
	ElementText(selector string) (string, bool)
	ElementsText(selector string) []string
	SetValue(selector, value string) error
	ReadValue(selector string) (string, error)
	TypeValue(selector, value string) error
	Click(selector string) error
	SetCookies(cookies []Cookie) (int, error)
	Cookies() ([]Cookie, error)
	Close() error
}

// Options controls browser launch behavior
type Options struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	ExecutablePath string
}

// Browser is the rod-backed Driver implementation
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	logger  *logrus.Logger
}

// setValueJS writes an input's value and fires the event sequence a reactive
// front end listens for. A bare value assignment is silently dropped by some
// frameworks, so the caller must read the value back to confirm the write.
const setValueJS = `(value) => {
	this.focus();
	this.value = '';
	this.value = value;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	this.dispatchEvent(new KeyboardEvent('keydown', { bubbles: true }));
	this.dispatchEvent(new KeyboardEvent('keyup', { bubbles: true }));
}`

const maskWebdriverJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// findExecutable locates a Chromium binary, preferring the CHROMIUM_BIN
// environment variable, then well-known names on PATH.
func findExecutable() string {
	if bin := os.Getenv("CHROMIUM_BIN"); bin != "" {
		return bin
	}
	for _, candidate := range []string{"chromium", "chromium-browser", "google-chrome", "chrome"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}
	return ""
}

// Launch starts a browser process and opens the single page the run will use
func Launch(opts Options, logger *logrus.Logger) (*Browser, error) {
	l := launcher.New().
		Leakless(false).
		Headless(opts.Headless).
		Set("no-sandbox", "true").
		Set("disable-dev-shm-usage", "true").
		Set("disable-gpu", "true").
		Set("disable-extensions", "true").
		Set("disable-infobars", "true").
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run", "true").
		Set("no-default-browser-check", "true")

	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", opts.ViewportWidth, opts.ViewportHeight))
	}

	bin := opts.ExecutablePath
	if bin == "" {
		bin = findExecutable()
	}
	if bin != "" {
		logger.WithField("bin", bin).Debug("Using browser executable")
		l = l.Bin(bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(maskWebdriverJS); err != nil {
		logger.WithError(err).Warn("Failed to install webdriver mask")
	}

	logger.Info("Browser initialized successfully")
	return &Browser{browser: b, page: page, logger: logger}, nil
}

// Navigate loads url and waits for the load event, proceeding after a bounded
// wait if the event never fires
func (b *Browser) Navigate(url string) error {
	if err := b.page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := b.page.Timeout(20 * time.Second).WaitLoad(); err != nil {
		b.logger.WithError(err).Warn("Page load wait timed out, proceeding anyway")
	}
	return nil
}

// Location returns the page's current URL, or empty if unreadable
func (b *Browser) Location() string {
	info, err := b.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// Title returns the page's current title
func (b *Browser) Title() string {
	info, err := b.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.Title
}

// BodyExcerpt returns up to limit bytes of the page markup
func (b *Browser) BodyExcerpt(limit int) string {
	html, err := b.page.HTML()
	if err != nil {
		return ""
	}
	if limit > 0 && len(html) > limit {
		return html[:limit]
	}
	return html
}

// WaitElement blocks until selector appears or timeout elapses
func (b *Browser) WaitElement(selector string, timeout time.Duration) error {
	if _, err := b.page.Timeout(timeout).Element(selector); err != nil {
		return fmt.Errorf("timeout waiting for element %s: %w", selector, err)
	}
	return nil
}

// ElementText returns the text of selector if present right now. It does not
// wait: absence of an optional element (an error banner) is a normal answer.
func (b *Browser) ElementText(selector string) (string, bool) {
	has, el, err := b.page.Has(selector)
	if err != nil || !has || el == nil {
		return "", false
	}
	text, err := el.Text()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}

// ElementsText returns the trimmed text of every element matching selector
func (b *Browser) ElementsText(selector string) []string {
	elements, err := b.page.Elements(selector)
	if err != nil {
		return nil
	}
	var texts []string
	for _, el := range elements {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	return texts
}

// SetValue writes value into selector through injected script, firing the
// input/change/keydown/keyup sequence
func (b *Browser) SetValue(selector, value string) error {
	el, err := b.element(selector)
	if err != nil {
		return err
	}
	if _, err := el.Eval(setValueJS, value); err != nil {
		return fmt.Errorf("failed to set value on %s: %w", selector, err)
	}
	return nil
}

// ReadValue reads the current value property of selector
func (b *Browser) ReadValue(selector string) (string, error) {
	el, err := b.element(selector)
	if err != nil {
		return "", err
	}
	v, err := el.Property("value")
	if err != nil {
		return "", fmt.Errorf("failed to read value of %s: %w", selector, err)
	}
	return v.Str(), nil
}

// TypeValue is the fallback injection path: a simulated pointer click on the
// field followed by real keystroke input
func (b *Browser) TypeValue(selector, value string) error {
	el, err := b.element(selector)
	if err != nil {
		return err
	}
	if err := el.Click("left", 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		b.logger.WithError(err).Debug("Select-all before typing failed")
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching selector
func (b *Browser) Click(selector string) error {
	el, err := b.element(selector)
	if err != nil {
		return err
	}
	if err := el.Click("left", 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// SetCookies injects cookies into the browsing context one at a time. A cookie
// the driver rejects is skipped, never fatal; the count of accepted cookies is
// returned.
func (b *Browser) SetCookies(cookies []Cookie) (int, error) {
	accepted := 0
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if param.Domain == "" {
			param.Domain = ".linkedin.com"
		}
		if param.Path == "" {
			param.Path = "/"
		}
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		if err := b.page.SetCookies([]*proto.NetworkCookieParam{param}); err != nil {
			b.logger.WithFields(logrus.Fields{
				"cookie": c.Name,
			}).WithError(err).Warn("Failed to add cookie, skipping")
			continue
		}
		accepted++
	}
	return accepted, nil
}

// Cookies reads all cookies currently held by the browsing context
func (b *Browser) Cookies() ([]Cookie, error) {
	raw, err := b.page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return cookies, nil
}

// Close releases the underlying browser process
func (b *Browser) Close() error {
	if b.browser != nil {
		return b.browser.Close()
	}
	return nil
}

// element looks an element up with a short bounded wait
func (b *Browser) element(selector string) (*rod.Element, error) {
	el, err := b.page.Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el, nil
}
