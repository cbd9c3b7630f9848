package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/pawafulu7/bonsai-cho/internal/browser"
	"github.com/pawafulu7/bonsai-cho/internal/session"
)

// SessionCookie is the cookie the app sets once a login completes.
const SessionCookie = "better-auth.session_token"

// authHosts are third-party identity providers the browser passes through
// mid-flow. Seeing one of these means the login is still in progress.
var authHosts = map[string]bool{
	"github.com":          true,
	"accounts.google.com": true,
}

// ErrTimeout is returned when the login window stays open past the ceiling.
var ErrTimeout = errors.New("login timed out")

// Options configures the interactive bootstrap.
type Options struct {
	BaseURL        string
	StateFile      string
	Timeout        time.Duration // whole-flow ceiling
	PollInterval   time.Duration
	ViewportWidth  int64
	ViewportHeight int64
	Logger         *slog.Logger
}

// Run opens a visible browser on the app's login page, waits for the user
// to finish signing in, then persists the session state with owner-only
// permissions. It blocks until the login completes, the ceiling elapses, or
// ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}

	trusted := browser.TrustedHost(opts.BaseURL)
	if trusted {
		opts.Logger.Info("certificate verification relaxed for trusted local host")
	} else {
		opts.Logger.Warn("strict certificate verification in effect for non-local host")
	}

	bctx, cancel := browser.NewContext(ctx, browser.Options{
		Headless:       false, // the user has to see the login page
		AllowInsecure:  trusted,
		ViewportWidth:  opts.ViewportWidth,
		ViewportHeight: opts.ViewportHeight,
		Logger:         opts.Logger,
	})
	defer cancel()

	bctx, tcancel := context.WithTimeout(bctx, opts.Timeout)
	defer tcancel()

	if err := browser.Prepare(bctx, browser.Options{
		ViewportWidth:  opts.ViewportWidth,
		ViewportHeight: opts.ViewportHeight,
	}); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	loginURL := opts.BaseURL + "/login"
	opts.Logger.Info("opening login page", slog.String("url", loginURL))
	if err := chromedp.Run(bctx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("connect to %s (is the dev server running? try: pnpm dev): %w", loginURL, err)
	}

	opts.Logger.Info("sign in with GitHub or Google in the browser window; it closes on its own once the login completes")

	if err := waitForLogin(bctx, opts.PollInterval); err != nil {
		return err
	}

	// Late cookie writes settle before the snapshot.
	_ = chromedp.Run(bctx, chromedp.Sleep(2*time.Second))

	st, err := session.Snapshot(bctx, session.Origin(opts.BaseURL))
	if err != nil {
		return fmt.Errorf("snapshot session: %w", err)
	}
	if err := session.Save(opts.StateFile, st); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	opts.Logger.Info("session state saved",
		slog.String("file", opts.StateFile),
		slog.Int("cookies", len(st.Cookies)))
	return nil
}

// waitForLogin polls the browser at a fixed interval until Complete holds.
// The ceiling lives on ctx, so hitting it surfaces here as a deadline.
func waitForLogin(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
			var loc string
			if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
				// cross-origin redirects mid-flow can race the read
				continue
			}
			if AuthURL(loc) {
				continue
			}
			names, err := cookieNames(ctx)
			if err != nil {
				continue
			}
			if Complete(loc, names) {
				return nil
			}
		}
	}
}

// AuthURL reports whether loc is part of the login flow itself: the app's
// login page, an OAuth callback, or a third-party identity provider.
func AuthURL(loc string) bool {
	if strings.Contains(loc, "/login") || strings.Contains(loc, "callback") {
		return true
	}
	u, err := url.Parse(loc)
	if err != nil {
		return true
	}
	return authHosts[u.Hostname()]
}

// Complete reports whether the current location and cookie set indicate a
// finished login. Both conditions must hold: a session cookie seen while
// still on an auth-related URL is not success.
func Complete(loc string, cookieNames []string) bool {
	if AuthURL(loc) {
		return false
	}
	for _, n := range cookieNames {
		if n == SessionCookie {
			return true
		}
	}
	return false
}

func cookieNames(ctx context.Context) ([]string, error) {
	var names []string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cks, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, ck := range cks {
			names = append(names, ck.Name)
		}
		return nil
	}))
	return names, err
}
