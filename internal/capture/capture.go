package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/pawafulu7/bonsai-cho/internal/browser"
)

// ShotFunc navigates to pageURL inside the browser context and returns the
// full-page PNG plus the URL the navigation actually landed on.
type ShotFunc func(ctx context.Context, pageURL string) (png []byte, landed string, err error)

// Runner captures pages one at a time in a single browser context. A failed
// page is logged and skipped; the remaining pages are still attempted.
type Runner struct {
	BaseURL    string
	OutputDir  string
	NavTimeout time.Duration
	Logger     *slog.Logger

	// Shot is the navigation+screenshot step; replaced in tests.
	Shot ShotFunc
}

func NewRunner(baseURL, outputDir string, navTimeout time.Duration, logger *slog.Logger) *Runner {
	r := &Runner{
		BaseURL:    baseURL,
		OutputDir:  outputDir,
		NavTimeout: navTimeout,
		Logger:     logger,
	}
	r.Shot = r.chromedpShot
	return r
}

// Run captures every page and returns the paths written.
func (r *Runner) Run(ctx context.Context, pages []Page) []string {
	var saved []string
	for _, p := range pages {
		out, err := r.capture(ctx, p)
		if err != nil {
			r.Logger.Error("capture failed",
				slog.String("path", p.Path),
				slog.String("err", err.Error()))
			continue
		}
		r.Logger.Info("screenshot saved", slog.String("file", out))
		saved = append(saved, out)
	}
	return saved
}

func (r *Runner) capture(ctx context.Context, p Page) (string, error) {
	pageURL := r.BaseURL + p.Path
	png, landed, err := r.Shot(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if strings.Contains(landed, "/login") {
		r.Logger.Warn("redirected to login page; session may have expired, re-run with --auth-setup",
			slog.String("path", p.Path))
	}
	out := filepath.Join(r.OutputDir, p.File)
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}

func (r *Runner) chromedpShot(ctx context.Context, pageURL string) ([]byte, string, error) {
	if err := browser.NavigateAndWaitIdle(ctx, pageURL, r.NavTimeout); err != nil {
		return nil, "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	var landed string
	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.Location(&landed),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, "", fmt.Errorf("screenshot %s: %w", pageURL, err)
	}
	return buf, landed, nil
}
