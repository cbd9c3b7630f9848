package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// ErrNoState is returned by Load when no session has been saved yet.
var ErrNoState = errors.New("no saved session state")

// Cookie mirrors the DevTools cookie attributes needed to replay a session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds; 0 means session cookie
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// OriginStorage holds the localStorage pairs captured for one origin.
type OriginStorage struct {
	Origin       string            `json:"origin"`
	LocalStorage map[string]string `json:"localStorage,omitempty"`
}

// State is the serialized browser session: cookies plus per-origin storage.
// The on-disk file must stay owner-only; it is a credential.
type State struct {
	Cookies []Cookie        `json:"cookies"`
	Origins []OriginStorage `json:"origins,omitempty"`
}

// CookieNames returns the names of all cookies in the state.
func (s *State) CookieNames() []string {
	names := make([]string, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		names = append(names, c.Name)
	}
	return names
}

// Origin reduces rawURL to its scheme://host[:port] origin.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

const readLocalStorageJS = `(() => {
	const out = {};
	for (let i = 0; i < localStorage.length; i++) {
		const k = localStorage.key(i);
		out[k] = localStorage.getItem(k);
	}
	return out;
})()`

// Snapshot captures the browser's cookies and the current page's
// localStorage, attributing the storage to origin.
func Snapshot(ctx context.Context, origin string) (*State, error) {
	st := &State{}

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cks, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("read cookies: %w", err)
		}
		for _, ck := range cks {
			st.Cookies = append(st.Cookies, Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
				SameSite: ck.SameSite.String(),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	var local map[string]string
	if err := chromedp.Run(ctx, chromedp.Evaluate(readLocalStorageJS, &local)); err != nil {
		return nil, fmt.Errorf("read localStorage: %w", err)
	}
	if len(local) > 0 {
		st.Origins = append(st.Origins, OriginStorage{Origin: origin, LocalStorage: local})
	}
	return st, nil
}

// Restore injects the state into a fresh browser context. Cookies go in
// first; if the state carries localStorage for the base origin, that origin
// is visited once so the pairs can be seeded before the capture loop runs.
func Restore(ctx context.Context, baseURL string, st *State) error {
	params := make([]*network.CookieParam, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	if len(params) > 0 {
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(params).Do(ctx)
		}))
		if err != nil {
			return fmt.Errorf("set cookies: %w", err)
		}
	}

	base := Origin(baseURL)
	for _, o := range st.Origins {
		if o.Origin != base || len(o.LocalStorage) == 0 {
			continue
		}
		data, err := json.Marshal(o.LocalStorage)
		if err != nil {
			return fmt.Errorf("encode localStorage: %w", err)
		}
		js := fmt.Sprintf(`(() => {
			const items = %s;
			for (const [k, v] of Object.entries(items)) localStorage.setItem(k, v);
			return true;
		})()`, data)
		err = chromedp.Run(ctx,
			chromedp.Navigate(base),
			chromedp.Evaluate(js, nil),
		)
		if err != nil {
			return fmt.Errorf("seed localStorage for %s: %w", base, err)
		}
	}
	return nil
}

// Save writes the state as JSON readable only by the owning user. The chmod
// after the write also tightens a pre-existing file with looser bits.
func Save(path string, st *State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// Load reads a previously saved state. A missing file yields ErrNoState so
// callers can tell "never bootstrapped" from a corrupt file.
func Load(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &st, nil
}
