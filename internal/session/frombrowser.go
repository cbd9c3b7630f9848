package session

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register cookie store finders
)

// FromBrowser reads cookies for the base URL's host out of an installed
// browser's cookie store and converts them into session state. A login done
// in a normal browser can seed the tool this way, skipping the interactive
// flow entirely. Only cookies are carried over; localStorage is not
// readable from a cookie store.
func FromBrowser(name, baseURL string) (*State, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("no host in base URL %q", baseURL)
	}

	want := normalizeBrowser(name)

	var use []kooky.CookieStore
	for _, s := range kooky.FindAllCookieStores() {
		if normalizeBrowser(s.Browser()) == want {
			use = append(use, s)
		}
	}
	if len(use) == 0 {
		return nil, fmt.Errorf("no %s cookie stores found", want)
	}
	defer func() {
		for _, s := range use {
			_ = s.Close()
		}
	}()

	// Session cookies (no expiry) are included; the app's auth relies on
	// them. Duplicates across profiles collapse to the first seen.
	st := &State{}
	seen := map[string]bool{}
	for _, s := range use {
		cks, err := s.ReadCookies(kooky.DomainHasSuffix(host))
		if err != nil {
			continue
		}
		for _, ck := range cks {
			key := strings.ToLower(ck.Domain) + "\t" + ck.Path + "\t" + ck.Name
			if seen[key] {
				continue
			}
			seen[key] = true
			c := Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				HTTPOnly: ck.HttpOnly,
				Secure:   ck.Secure,
			}
			if !ck.Expires.IsZero() {
				c.Expires = float64(ck.Expires.Unix())
			}
			st.Cookies = append(st.Cookies, c)
		}
	}

	if len(st.Cookies) == 0 {
		return nil, fmt.Errorf("no cookies for %q found in %s", host, want)
	}
	return st, nil
}

func normalizeBrowser(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chromium":
		return "chromium"
	case "edge", "microsoft edge":
		return "edge"
	case "brave":
		return "brave"
	case "firefox":
		return "firefox"
	default:
		return "chrome"
	}
}
