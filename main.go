package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JiwaniZakir/sentinel/browser"
	"github.com/JiwaniZakir/sentinel/config"
	"github.com/JiwaniZakir/sentinel/flow"
	"github.com/JiwaniZakir/sentinel/logger"
	"github.com/JiwaniZakir/sentinel/login"
	"github.com/JiwaniZakir/sentinel/profile"
	"github.com/JiwaniZakir/sentinel/ratelimit"
	"github.com/JiwaniZakir/sentinel/session"
	"github.com/JiwaniZakir/sentinel/storage"
	"github.com/JiwaniZakir/sentinel/verify"
)

var (
	configFile string
	verbose    bool
	headless   bool
)

func main() {
	// A missing .env file is fine; explicit env vars still apply
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use:           "sentinel",
		Short:         "LinkedIn profile scraper with resilient session handling",
		Long:          `Scrapes LinkedIn profiles behind an automated login that survives cookie reuse, credential submission, and email-delivered verification codes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config/config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "Run browser in headless mode")

	rootCmd.AddCommand(createScrapeCmd())
	rootCmd.AddCommand(createStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func createScrapeCmd() *cobra.Command {
	var (
		stdin    bool
		email    string
		password string
	)

	var cmd = &cobra.Command{
		Use:   "scrape [linkedin-url]",
		Short: "Scrape a LinkedIn profile",
		Long:  `Authenticate (reusing stored cookies when possible) and scrape one profile URL. With --stdin the full request is read as JSON, including cookies and mailbox credentials.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(args, stdin, email, password)
		},
	}

	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read JSON request from stdin")
	cmd.Flags().StringVar(&email, "email", "", "LinkedIn email (or LINKEDIN_EMAIL env var)")
	cmd.Flags().StringVar(&password, "password", "", "LinkedIn password (or LINKEDIN_PASSWORD env var)")

	return cmd
}

func createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, stored sessions, and recent runs",
		RunE:  runStatus,
	}
}

func runScrape(args []string, stdin bool, email, password string) error {
	var req flow.Request

	if stdin {
		data, err := io.ReadAll(os.Stdin)
		if err == nil {
			err = json.Unmarshal(data, &req)
		}
		if err != nil {
			emit(flow.Fail(flow.ErrInputError, fmt.Sprintf("failed to parse stdin input: %v", err)))
			os.Exit(1)
		}
	} else {
		if len(args) > 0 {
			req.URL = args[0]
		}
		req.Email = email
		req.Password = password
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		emit(flow.Fail(flow.ErrInputError, fmt.Sprintf("failed to load config: %v", err)))
		os.Exit(1)
	}
	if err := setupLogger(cfg); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}

	resp := execute(context.Background(), cfg, req)
	emit(resp)
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

// execute runs one full request: validate, authenticate, scrape. All
// failures come back as a typed response; the process never navigates before
// the input is validated.
func execute(ctx context.Context, cfg *config.Config, req flow.Request) flow.Response {
	log := logger.GetLogger()

	if req.URL == "" {
		return flow.Fail(flow.ErrInvalidInput, "no LinkedIn URL provided")
	}
	if !strings.Contains(req.URL, "linkedin.com") {
		return flow.Fail(flow.ErrInvalidURL, "invalid LinkedIn URL")
	}

	// Credentials omitted from the request fall back to config/env
	if req.Email == "" {
		req.Email = cfg.LinkedIn.Email
	}
	if req.Password == "" {
		req.Password = cfg.LinkedIn.Password
	}
	if req.GmailEmail == "" {
		req.GmailEmail = cfg.Mailbox.Email
	}
	if req.GmailAppPassword == "" {
		req.GmailAppPassword = cfg.Mailbox.AppPassword
	}

	if (req.Email == "" || req.Password == "") && len(req.Cookies) == 0 {
		return flow.Fail(flow.ErrAuthMissing, "LinkedIn credentials not provided. Set LINKEDIN_EMAIL and LINKEDIN_PASSWORD environment variables.")
	}

	store, err := storage.NewStore(cfg.Storage.DatabasePath, log)
	if err != nil {
		log.WithError(err).Warn("Run store unavailable, continuing without persistence")
		store = nil
	} else {
		defer store.Close()
	}

	// Stored cookies from a previous run stand in when the caller sent none;
	// the database is checked first, then the per-account session file
	if len(req.Cookies) == 0 && store != nil && req.Email != "" {
		if st, ok, err := store.LoadSession(req.Email); err == nil && ok {
			log.WithField("cookies_count", len(st)).Info("Reusing stored session cookies")
			req.Cookies = st
		}
	}
	if len(req.Cookies) == 0 && req.Email != "" && cfg.Storage.SessionDir != "" {
		if st, err := session.ReadFile(sessionFilePath(cfg.Storage.SessionDir, req.Email)); err == nil && len(st) > 0 {
			log.WithField("cookies_count", len(st)).Info("Reusing session cookies from file")
			req.Cookies = st
		}
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		MinDelay:     cfg.Limits.MinDelay,
		MaxDelay:     cfg.Limits.MaxDelay,
		DailyLogins:  cfg.Limits.DailyLogins,
		DailyScrapes: cfg.Limits.DailyScrapes,
	}, log)

	runID := uuid.NewString()
	started := time.Now()
	resp := authenticateAndScrape(ctx, cfg, limiter, req)

	if store != nil {
		if err := store.RecordRun(storage.RunRecord{
			ID:         runID,
			URL:        req.URL,
			Success:    resp.Success,
			ErrorType:  string(resp.ErrorType),
			DurationMS: time.Since(started).Milliseconds(),
		}); err != nil {
			log.WithError(err).Warn("Failed to record run")
		}
		if resp.Success && req.Email != "" && len(resp.Cookies) > 0 {
			if err := store.SaveSession(req.Email, resp.Cookies); err != nil {
				log.WithError(err).Warn("Failed to persist session cookies")
			}
		}
	}
	if resp.Success && req.Email != "" && len(resp.Cookies) > 0 && cfg.Storage.SessionDir != "" {
		if err := resp.Cookies.WriteFile(sessionFilePath(cfg.Storage.SessionDir, req.Email)); err != nil {
			log.WithError(err).Warn("Failed to write session file")
		}
	}

	return resp
}

// authenticateAndScrape owns the browsing context for one run and releases
// it on every exit path
func authenticateAndScrape(ctx context.Context, cfg *config.Config, limiter *ratelimit.Limiter, req flow.Request) flow.Response {
	log := logger.GetLogger()

	b, err := browser.Launch(browser.Options{
		Headless:       headless && cfg.Browser.Headless,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		ExecutablePath: cfg.Browser.ExecutablePath,
	}, log)
	if err != nil {
		return flow.Fail(flow.ErrScrapeError, fmt.Sprintf("failed to launch browser: %v", err))
	}
	defer b.Close()

	sessionStore := session.NewStore(cfg.LinkedIn.ProbeURL, log)
	executor := login.NewExecutor(cfg.LinkedIn.LoginURL, cfg.Timing.FieldWait, cfg.Timing.SettleDelay, log)

	waiterFactory := func(email, appPassword string) flow.CodeWaiter {
		dial := func() (verify.Mailbox, error) {
			return verify.DialIMAP(verify.IMAPConfig{
				Address:  cfg.Mailbox.Address,
				Email:    email,
				Password: appPassword,
			})
		}
		return verify.NewPoller(dial, cfg.Mailbox.SenderFilter, cfg.Mailbox.SubjectMarker, cfg.Timing.PollInterval, log)
	}

	orchestrator := flow.NewOrchestrator(sessionStore, executor, waiterFactory, cfg.Timing.CodeTimeout, log)
	// A run that authenticates via replayed cookies never charges the login cap
	orchestrator.SetLoginGate(func() error {
		return limiter.Allow(ratelimit.ActionLogin)
	})

	cookies, failure := orchestrator.Authenticate(ctx, b, req)
	if failure != nil {
		return flow.Fail(failure.Type, failure.Reason)
	}

	if err := limiter.Allow(ratelimit.ActionScrape); err != nil {
		return flow.Fail(flow.ErrRateLimited, err.Error())
	}
	limiter.Pause()

	scraper := profile.NewScraper(log)
	data, err := scraper.Scrape(ctx, b, req.URL)
	if err != nil {
		return flow.Fail(inferScrapeErrorType(err), err.Error())
	}

	return flow.Response{
		Success:     true,
		ScrapedAt:   time.Now().UTC().Format(time.RFC3339),
		LinkedInURL: req.URL,
		Data:        data,
		Cookies:     cookies,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}

	store, err := storage.NewStore(cfg.Storage.DatabasePath, logger.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(10)
	if err != nil {
		return fmt.Errorf("failed to load recent runs: %w", err)
	}

	fmt.Printf("Sentinel Status\n")
	fmt.Printf("===============\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Config file: %s\n", configFile)
	fmt.Printf("  Headless: %v\n", headless)
	fmt.Printf("  LinkedIn email: %s\n", maskEmail(cfg.LinkedIn.Email))
	fmt.Printf("  Mailbox: %s\n", maskEmail(cfg.Mailbox.Email))
	fmt.Printf("\n")
	fmt.Printf("Recent runs:\n")
	if len(runs) == 0 {
		fmt.Printf("  (none)\n")
	}
	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = r.ErrorType
		}
		fmt.Printf("  %s  %-22s  %6dms  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), status, r.DurationMS, r.URL)
	}

	return nil
}

// Helper functions

func setupLogger(cfg *config.Config) error {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logger.InitLogger(level, cfg.Logging.Format, cfg.Logging.Output)
}

// emit writes the response envelope to stdout; everything else goes to stderr
func emit(resp flow.Response) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Println(`{"success": false, "error": "failed to encode response", "error_type": "SCRAPE_ERROR"}`)
		return
	}
	fmt.Println(string(data))
}

func inferScrapeErrorType(err error) flow.ErrorType {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return flow.ErrProfileNotFound
	case errors.Is(err, profile.ErrNotAuthenticated):
		return flow.ErrAuthFailed
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate") || strings.Contains(msg, "limit"):
		return flow.ErrRateLimited
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login"):
		return flow.ErrAuthFailed
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return flow.ErrProfileNotFound
	}
	return flow.ErrScrapeError
}

// sessionFilePath maps an account to its on-disk session file
func sessionFilePath(dir, email string) string {
	name := strings.NewReplacer("@", "_at_", "/", "_").Replace(email)
	return filepath.Join(dir, name+".json")
}

func maskEmail(email string) string {
	if email == "" {
		return "(not set)"
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || len(parts[0]) <= 2 {
		return "***"
	}
	return parts[0][:2] + strings.Repeat("*", len(parts[0])-2) + "@" + parts[1]
}
