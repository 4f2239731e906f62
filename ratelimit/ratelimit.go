package ratelimit

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Action identifies a throttled operation
type Action string

const (
	ActionLogin  Action = "login"
	ActionScrape Action = "scrape"
)

// Config defines rate limiting behavior
type Config struct {
	MinDelay     time.Duration // minimum pause between actions
	MaxDelay     time.Duration // maximum pause between actions
	DailyLogins  int           // max login attempts per day
	DailyScrapes int           // max profile scrapes per day
}

// Limiter enforces per-day caps and jittered spacing between site actions.
// Repeated logins are what trip the site's defenses, so a cap hit is
// reported before any navigation happens.
type Limiter struct {
	mu          sync.Mutex
	config      Config
	logger      *logrus.Logger
	dailyCounts map[Action]int
	lastAction  map[Action]time.Time
	resetDay    time.Time
	rng         *rand.Rand
}

// NewLimiter creates a rate limiter
func NewLimiter(config Config, logger *logrus.Logger) *Limiter {
	return &Limiter{
		config:      config,
		logger:      logger,
		dailyCounts: make(map[Action]int),
		lastAction:  make(map[Action]time.Time),
		resetDay:    midnight(time.Now()),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allow records one action, or returns an error when its daily cap is hit
func (l *Limiter) Allow(action Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeReset()

	cap := l.capFor(action)
	if cap > 0 && l.dailyCounts[action] >= cap {
		l.logger.WithFields(logrus.Fields{
			"action": string(action),
			"count":  l.dailyCounts[action],
		}).Warn("Daily limit reached")
		return fmt.Errorf("daily %s limit of %d reached", action, cap)
	}

	l.dailyCounts[action]++
	l.lastAction[action] = time.Now()
	return nil
}

// Pause sleeps a jittered delay between consecutive site actions
func (l *Limiter) Pause() {
	l.mu.Lock()
	min, max := l.config.MinDelay, l.config.MaxDelay
	rng := l.rng
	l.mu.Unlock()

	if min <= 0 {
		return
	}
	delay := min
	if max > min {
		delay += time.Duration(rng.Int63n(int64(max - min)))
	}
	time.Sleep(delay)
}

// Counts returns today's per-action counts
func (l *Limiter) Counts() map[Action]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeReset()
	counts := make(map[Action]int, len(l.dailyCounts))
	for action, n := range l.dailyCounts {
		counts[action] = n
	}
	return counts
}

func (l *Limiter) capFor(action Action) int {
	switch action {
	case ActionLogin:
		return l.config.DailyLogins
	case ActionScrape:
		return l.config.DailyScrapes
	}
	return 0
}

// maybeReset clears counts when the day rolls over; callers hold the lock
func (l *Limiter) maybeReset() {
	today := midnight(time.Now())
	if today.After(l.resetDay) {
		l.dailyCounts = make(map[Action]int)
		l.resetDay = today
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
