package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// trustedHosts are the only hosts for which certificate validation may be
// relaxed. The set is fixed; it is never extended at runtime.
var trustedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// TrustedHost reports whether rawURL points at a loopback host. Only these
// hosts may run with relaxed TLS; everything else keeps strict verification
// and surfaces certificate problems as ordinary navigation failures.
func TrustedHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return trustedHosts[u.Hostname()]
}

// Options controls how the Chrome instance is launched.
type Options struct {
	Headless       bool
	AllowInsecure  bool // relaxed TLS; callers must gate this on TrustedHost
	ViewportWidth  int64
	ViewportHeight int64
	Logger         *slog.Logger
}

// NewContext launches Chrome and returns a chromedp context ready for
// Prepare. The returned cancel tears down the tab, the browser, and the
// allocator, so no browser process outlives the run.
func NewContext(parent context.Context, opts Options) (context.Context, context.CancelFunc) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.AllowInsecure {
		allocOpts = append(allocOpts,
			chromedp.Flag("allow-insecure-localhost", true),
			chromedp.Flag("ignore-certificate-errors", true),
		)
	}

	actx, acancel := chromedp.NewExecAllocator(parent, allocOpts...)

	var ctxOpts []chromedp.ContextOption
	if opts.Logger != nil {
		log := opts.Logger
		ctxOpts = append(ctxOpts,
			chromedp.WithLogf(func(f string, a ...any) { log.Info(fmt.Sprintf(f, a...)) }),
			chromedp.WithDebugf(func(f string, a ...any) { log.Debug(fmt.Sprintf(f, a...)) }),
			chromedp.WithErrorf(func(f string, a ...any) { log.Warn(fmt.Sprintf(f, a...)) }),
		)
	}
	cctx, ccancel := chromedp.NewContext(actx, ctxOpts...)

	cancel := func() {
		ccancel()
		acancel()
	}
	return cctx, cancel
}

// Prepare applies viewport emulation and enables the protocol domains the
// capture and login flows rely on. It must run once before any navigation.
func Prepare(ctx context.Context, opts Options) error {
	w, h := opts.ViewportWidth, opts.ViewportHeight
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 900
	}
	return chromedp.Run(ctx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(w, h),
	)
}

// NavigateAndWaitIdle navigates to pageURL and waits for the page's
// networkIdle lifecycle signal. A page that never settles falls through
// after timeout so a screenshot is still taken from whatever has loaded.
func NavigateAndWaitIdle(ctx context.Context, pageURL string, timeout time.Duration) error {
	idle := make(chan struct{}, 1)
	lctx, lcancel := context.WithCancel(ctx)
	defer lcancel()

	// Listener goes in before the navigation so the event cannot be missed
	// on fast pages.
	chromedp.ListenTarget(lctx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(ctx, chromedp.Navigate(pageURL)); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
