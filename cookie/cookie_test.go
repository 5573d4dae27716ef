package cookie

import (
	"testing"
	"time"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{".Example.COM", "example.com"},
		{"www.example.com", "example.com"},
		{"WWW.Example.com", "example.com"},
		{"..a.com", "a.com"},
		{"sub.b.com", "sub.b.com"},
		{"docs.www.example.com", "docs.example.com"},
		{"www..a.com", "a.com"},
		{"wwww.ww.com", "com"},
	}
	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDomain_Idempotent(t *testing.T) {
	inputs := []string{
		"", ".", "...", "www.", "WWW.WWW.x.org", ".www.Example.com", "wwww.ww.com",
		"www..a.com", "a.www.www.b", "ÉXAMPLE.com", "localhost", "  spaced  ",
	}
	for _, in := range inputs {
		once := NormalizeDomain(in)
		if twice := NormalizeDomain(once); twice != once {
			t.Errorf("NormalizeDomain not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.Example.com/login?next=/", "example.com"},
		{"http://sub.b.com:8080/x", "sub.b.com"},
		{"https://a.com", "a.com"},
		{"about:blank", ""},
		{"", ""},
		{"://bad", ""},
		{"http://[::1", ""},
		{"%zz", ""},
	}
	for _, tt := range tests {
		if got := ExtractDomain(tt.in); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsWebURL(t *testing.T) {
	if !IsWebURL("https://a.com/") {
		t.Error("https URL should be web")
	}
	for _, u := range []string{"about:blank", "chrome://newtab/", "data:text/html,hi", "http://[::1"} {
		if IsWebURL(u) {
			t.Errorf("IsWebURL(%q) = true", u)
		}
	}
}

func TestIsAuthCookie(t *testing.T) {
	tests := []struct {
		c    Cookie
		want bool
	}{
		{Cookie{Name: "sessionid"}, true},
		{Cookie{Name: "theme"}, false},
		{Cookie{Name: "theme", HTTPOnly: true}, true},
		{Cookie{Name: "auth_token"}, true},
		{Cookie{Name: "XSRF-CSRF"}, true},
		{Cookie{Name: "_ga"}, false},
		{Cookie{Name: "SID"}, true},
		{Cookie{Name: "Refresh"}, true},
	}
	for _, tt := range tests {
		if got := IsAuthCookie(tt.c); got != tt.want {
			t.Errorf("IsAuthCookie(%q, httpOnly=%v) = %v, want %v", tt.c.Name, tt.c.HTTPOnly, got, tt.want)
		}
	}
}

func TestFilterAuth(t *testing.T) {
	in := []Cookie{
		{Name: "auth_token", Value: "x"},
		{Name: "theme", Value: "dark"},
		{Name: "prefs", HTTPOnly: true},
	}
	got := FilterAuth(in)
	if len(got) != 2 || got[0].Name != "auth_token" || got[1].Name != "prefs" {
		t.Fatalf("FilterAuth: got %#v", got)
	}
	if got := FilterAuth(nil); len(got) != 0 {
		t.Fatalf("FilterAuth(nil): got %d cookies", len(got))
	}
}

func TestExpiresAt(t *testing.T) {
	if _, ok := (Cookie{Expires: -1}).ExpiresAt(); ok {
		t.Fatal("session cookie should have no expiry")
	}
	at, ok := (Cookie{Expires: 1700000000.5}).ExpiresAt()
	if !ok {
		t.Fatal("expected expiry")
	}
	want := time.Unix(1700000000, int64(500*time.Millisecond))
	if !at.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", at, want)
	}
}
