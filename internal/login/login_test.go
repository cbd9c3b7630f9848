package login

import "testing"

func TestAuthURL(t *testing.T) {
	auth := []string{
		"https://localhost:4321/login",
		"https://localhost:4321/login?error=access_denied",
		"https://localhost:4321/api/auth/callback/github",
		"https://localhost:4321/api/auth/callback/google?code=abc",
		"https://github.com/login/oauth/authorize?client_id=x",
		"https://accounts.google.com/o/oauth2/v2/auth",
	}
	for _, u := range auth {
		if !AuthURL(u) {
			t.Fatalf("AuthURL(%q) = false, want true", u)
		}
	}

	app := []string{
		"https://localhost:4321/",
		"https://localhost:4321/bonsai",
		"https://localhost:4321/bonsai/new",
	}
	for _, u := range app {
		if AuthURL(u) {
			t.Fatalf("AuthURL(%q) = true, want false", u)
		}
	}
}

func TestCompleteRequiresBothConditions(t *testing.T) {
	withCookie := []string{"astro-locale", SessionCookie}
	withoutCookie := []string{"astro-locale"}

	// Cookie already present but still on an auth URL: not done. The OAuth
	// callback in particular sets the cookie before redirecting home.
	authURLs := []string{
		"https://localhost:4321/login",
		"https://localhost:4321/api/auth/callback/github",
		"https://accounts.google.com/o/oauth2/v2/auth",
	}
	for _, u := range authURLs {
		if Complete(u, withCookie) {
			t.Fatalf("Complete(%q, cookie) = true, want false", u)
		}
	}

	// App URL but no session cookie yet: not done.
	if Complete("https://localhost:4321/", withoutCookie) {
		t.Fatal("Complete without session cookie = true, want false")
	}
	if Complete("https://localhost:4321/", nil) {
		t.Fatal("Complete with no cookies = true, want false")
	}

	// Both conditions hold.
	if !Complete("https://localhost:4321/", withCookie) {
		t.Fatal("Complete with app URL and session cookie = false, want true")
	}
	if !Complete("https://localhost:4321/bonsai", withCookie) {
		t.Fatal("Complete on an inner app page = false, want true")
	}
}
