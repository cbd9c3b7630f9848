package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	st := &State{
		Cookies: []Cookie{
			{Name: "better-auth.session_token", Value: "tok", Domain: "localhost", Path: "/", HTTPOnly: true, Secure: true},
			{Name: "theme", Value: "dark", Domain: "localhost", Path: "/", Expires: 2000000000},
		},
		Origins: []OriginStorage{
			{Origin: "https://localhost:4321", LocalStorage: map[string]string{"seen-intro": "1"}},
		},
	}
	if err := Save(path, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Cookies) != 2 || got.Cookies[0].Name != "better-auth.session_token" {
		t.Fatalf("cookies did not survive the roundtrip: %+v", got.Cookies)
	}
	if len(got.Origins) != 1 || got.Origins[0].LocalStorage["seen-intro"] != "1" {
		t.Fatalf("origin storage did not survive the roundtrip: %+v", got.Origins)
	}
}

func TestSaveRestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	if err := Save(path, &State{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm got %o want 600", perm)
	}
}

func TestSaveTightensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Save(path, &State{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm got %o want 600", perm)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNoState) {
		t.Fatalf("err got %v want ErrNoState", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := Load(path)
	if err == nil || errors.Is(err, ErrNoState) {
		t.Fatalf("corrupt file should fail with a parse error, got %v", err)
	}
}

func TestOrigin(t *testing.T) {
	cases := map[string]string{
		"https://localhost:4321/login":       "https://localhost:4321",
		"http://localhost:4321":              "http://localhost:4321",
		"https://bonsai-cho.example/bonsai":  "https://bonsai-cho.example",
		"http://[::1]:4321/bonsai/quick-add": "http://[::1]:4321",
	}
	for in, want := range cases {
		if got := Origin(in); got != want {
			t.Fatalf("Origin(%q) got %q want %q", in, got, want)
		}
	}
}

func TestCookieNames(t *testing.T) {
	st := &State{Cookies: []Cookie{{Name: "a"}, {Name: "b"}}}
	names := st.CookieNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names got %v", names)
	}
}
