// Command screenshot captures full-page screenshots of the bonsai-cho web
// app, optionally reusing a saved authenticated browser session.
//
// Usage:
//
//	screenshot                          # unauthenticated defaults (HTTP)
//	screenshot --auth-setup             # interactive login, saves session state
//	screenshot --auth                   # authenticated defaults (HTTPS)
//	screenshot --auth /bonsai/new       # authenticated, specific page
//	screenshot --serve /                # capture, then serve shots for review
//	screenshot --cookies-from-browser chrome
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pawafulu7/bonsai-cho/internal/browser"
	"github.com/pawafulu7/bonsai-cho/internal/capture"
	"github.com/pawafulu7/bonsai-cho/internal/config"
	"github.com/pawafulu7/bonsai-cho/internal/login"
	"github.com/pawafulu7/bonsai-cho/internal/review"
	"github.com/pawafulu7/bonsai-cho/internal/session"
)

const (
	defaultBaseURLHTTP  = "http://localhost:4321"
	defaultBaseURLHTTPS = "https://localhost:4321"
)

var (
	authSetup   = flag.Bool("auth-setup", false, "interactive login; saves session state and exits")
	useAuth     = flag.Bool("auth", false, "use the saved session state for the capture run")
	baseURLFlag = flag.String("base-url", "", "target origin (default http(s)://localhost:4321)")
	configPath  = flag.String("config", "screenshot.yaml", "config file path (optional)")
	serve       = flag.Bool("serve", false, "serve captured screenshots for review after the run")
	fromBrowser = flag.String("cookies-from-browser", "", "import the session from an installed browser (chrome, chromium, edge, brave, firefox) instead of --auth-setup")
)

func main() {
	_ = godotenv.Load() // .env is optional

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)

	baseURL := resolveBaseURL(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *fromBrowser != "":
		if err := importSession(cfg, baseURL, logger); err != nil {
			logger.Error("cookie import failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		return

	case *authSetup:
		err := login.Run(ctx, login.Options{
			BaseURL:        baseURL,
			StateFile:      cfg.StateFile,
			Timeout:        cfg.LoginTimeout(),
			PollInterval:   cfg.PollInterval(),
			ViewportWidth:  cfg.ViewportWidth,
			ViewportHeight: cfg.ViewportHeight,
			Logger:         logger,
		})
		if err != nil {
			if errors.Is(err, login.ErrTimeout) {
				logger.Error("authentication timed out", slog.Duration("after", cfg.LoginTimeout()))
			} else {
				logger.Error("authentication failed", slog.String("err", err.Error()))
			}
			os.Exit(1)
		}
		logger.Info("authentication successful; use --auth to take authenticated screenshots")
		return
	}

	saved, err := runCapture(ctx, cfg, baseURL, logger)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	fmt.Printf("Total: %d screenshot(s) saved to %s\n", len(saved), cfg.OutputDir)

	if *serve {
		runReview(ctx, cfg, logger)
	}
}

// resolveBaseURL picks the target origin: flag beats config beats the mode
// default. Authenticated modes default to HTTPS, plain captures to HTTP.
func resolveBaseURL(cfg *config.Config) string {
	if *baseURLFlag != "" {
		return *baseURLFlag
	}
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if *useAuth || *authSetup || *fromBrowser != "" {
		return defaultBaseURLHTTPS
	}
	return defaultBaseURLHTTP
}

func importSession(cfg *config.Config, baseURL string, logger *slog.Logger) error {
	st, err := session.FromBrowser(*fromBrowser, baseURL)
	if err != nil {
		return err
	}
	if err := session.Save(cfg.StateFile, st); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	logger.Info("imported session from browser",
		slog.String("browser", *fromBrowser),
		slog.Int("cookies", len(st.Cookies)),
		slog.String("file", cfg.StateFile))
	return nil
}

// runCapture drives the headless capture run. The browser is torn down on
// every return path, including per-page failures inside the runner.
func runCapture(ctx context.Context, cfg *config.Config, baseURL string, logger *slog.Logger) ([]string, error) {
	var st *session.State
	if *useAuth {
		var err error
		st, err = session.Load(cfg.StateFile)
		if errors.Is(err, session.ErrNoState) {
			return nil, fmt.Errorf("session state not found at %s; run --auth-setup first", cfg.StateFile)
		}
		if err != nil {
			return nil, fmt.Errorf("load session state: %w", err)
		}
	}

	pages := capture.DefaultPages
	if *useAuth {
		pages = capture.DefaultAuthPages
	}
	if args := flag.Args(); len(args) > 0 {
		pages = capture.FromArgs(args)
	}

	trusted := browser.TrustedHost(baseURL)
	if trusted && strings.HasPrefix(baseURL, "https") {
		logger.Info("certificate verification relaxed for trusted local host")
	}
	logger.Info("taking screenshots",
		slog.String("base_url", baseURL),
		slog.Bool("auth", *useAuth),
		slog.Int("pages", len(pages)))

	bctx, cancel := browser.NewContext(ctx, browser.Options{
		Headless:       true,
		AllowInsecure:  trusted,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		Logger:         logger,
	})
	defer cancel()

	if err := browser.Prepare(bctx, browser.Options{
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
	}); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	if st != nil {
		if err := session.Restore(bctx, baseURL, st); err != nil {
			return nil, fmt.Errorf("restore session: %w", err)
		}
	}

	r := capture.NewRunner(baseURL, cfg.OutputDir, cfg.NavTimeout(), logger)
	return r.Run(bctx, pages), nil
}

// runReview serves the output directory until interrupted.
func runReview(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	srv := review.NewServer(cfg.OutputDir, logger)

	go func() {
		if err := srv.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("watch output dir", slog.String("err", err.Error()))
		}
	}()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ReviewPort),
		Handler: srv.Router(),
	}
	go func() {
		<-ctx.Done()
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = httpSrv.Shutdown(shCtx)
	}()

	logger.Info("review server listening",
		slog.String("url", fmt.Sprintf("http://localhost:%d", cfg.ReviewPort)),
		slog.String("dir", cfg.OutputDir))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("review server failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
