package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/JiwaniZakir/sentinel/browser"
	"github.com/JiwaniZakir/sentinel/login"
)

// ErrNotFound reports that the profile page does not exist
var ErrNotFound = errors.New("profile not found")

// ErrNotAuthenticated reports that the profile navigation was bounced to a
// login or challenge screen
var ErrNotAuthenticated = errors.New("not authenticated")

// Profile is the structured data extracted from one profile page
type Profile struct {
	Name        string       `json:"name"`
	Headline    string       `json:"headline,omitempty"`
	About       string       `json:"about,omitempty"`
	Location    string       `json:"location,omitempty"`
	Experiences []Experience `json:"experiences"`
	Educations  []Education  `json:"educations"`
	Interests   []string     `json:"interests"`
	Connections string       `json:"connections,omitempty"`
}

// Experience is one entry of the experience section
type Experience struct {
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Education is one entry of the education section
type Education struct {
	School string `json:"school,omitempty"`
	Degree string `json:"degree,omitempty"`
}

// Scraper extracts structured data from profile pages on an authenticated
// browsing context
type Scraper struct {
	logger *logrus.Logger
}

// NewScraper creates a profile scraper
func NewScraper(logger *logrus.Logger) *Scraper {
	return &Scraper{logger: logger}
}

// Scrape navigates to profileURL and walks the page into a Profile. Missing
// sections degrade to empty values; only an unreachable or unauthorized page
// is an error.
func (s *Scraper) Scrape(ctx context.Context, d browser.Driver, profileURL string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.WithField("url", profileURL).Info("Scraping profile")
	if err := d.Navigate(profileURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to profile: %w", err)
	}

	loc := d.Location()
	if login.LooksBlocked(loc) {
		return nil, ErrNotAuthenticated
	}
	if strings.Contains(loc, "/404") || pageNotFound(d) {
		return nil, ErrNotFound
	}

	p := &Profile{
		Experiences: make([]Experience, 0),
		Educations:  make([]Education, 0),
		Interests:   make([]string, 0),
	}

	p.Name = firstText(d,
		"h1.text-heading-xlarge",
		".pv-top-card--list li:first-child",
		"h1",
	)
	p.Headline = firstText(d,
		".text-body-medium.break-words",
		".pv-top-card--headline",
	)
	p.Location = firstText(d,
		".text-body-small.inline.t-black--light.break-words",
		".pv-top-card--list-bullet li:first-child",
	)
	p.About = firstText(d,
		"#about ~ .display-flex .inline-show-more-text",
		".pv-about__summary-text",
	)
	p.Connections = firstText(d,
		".pv-top-card--list-bullet .t-bold",
		"span.t-bold",
	)

	s.extractExperiences(d, p)
	s.extractEducations(d, p)
	p.Interests = d.ElementsText("#interests ~ .pvs-list__outer-container .visually-hidden")

	if p.Name == "" {
		s.logger.WithField("url", loc).Warn("Profile page yielded no name")
	}
	s.logger.WithFields(logrus.Fields{
		"name":        p.Name,
		"experiences": len(p.Experiences),
		"educations":  len(p.Educations),
	}).Info("Profile extracted")

	return p, nil
}

func (s *Scraper) extractExperiences(d browser.Driver, p *Profile) {
	titles := d.ElementsText("#experience ~ .pvs-list__outer-container .t-bold span[aria-hidden='true']")
	companies := d.ElementsText("#experience ~ .pvs-list__outer-container .t-14.t-normal > span[aria-hidden='true']")
	for i, title := range titles {
		exp := Experience{Title: title}
		if i < len(companies) {
			exp.Company = companies[i]
		}
		p.Experiences = append(p.Experiences, exp)
	}
}

func (s *Scraper) extractEducations(d browser.Driver, p *Profile) {
	schools := d.ElementsText("#education ~ .pvs-list__outer-container .t-bold span[aria-hidden='true']")
	degrees := d.ElementsText("#education ~ .pvs-list__outer-container .t-14.t-normal > span[aria-hidden='true']")
	for i, school := range schools {
		edu := Education{School: school}
		if i < len(degrees) {
			edu.Degree = degrees[i]
		}
		p.Educations = append(p.Educations, edu)
	}
}

// firstText tries each selector in order and returns the first non-empty text
func firstText(d browser.Driver, selectors ...string) string {
	for _, sel := range selectors {
		if text, ok := d.ElementText(sel); ok && text != "" {
			return text
		}
	}
	return ""
}

func pageNotFound(d browser.Driver) bool {
	body := strings.ToLower(d.BodyExcerpt(2000))
	return strings.Contains(body, "page not found") || strings.Contains(body, "this page doesn't exist")
}
