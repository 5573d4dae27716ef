package syncapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/hyperaide-sync/cookie"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"})
}

func TestStart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != BasePath+"/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(HeaderToken); got != "tok" {
			t.Errorf("token header: got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"existing":        true,
			"connected_sites": []map[string]string{{"display_name": "GitHub", "domain": "github.com"}},
		})
	})

	res, err := c.Start(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Existing || len(res.ConnectedSites) != 1 || res.ConnectedSites[0].Name() != "GitHub" {
		t.Fatalf("unexpected start result: %#v", res)
	}
}

func TestStart_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Start(context.Background(), "bad")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestStart_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.Start(context.Background(), "tok")
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if se.StatusCode != 500 || se.Body != "boom" || se.Op != "start" {
		t.Fatalf("unexpected ServerError: %#v", se)
	}
}

func TestStart_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url})
	_, err := c.Start(context.Background(), "tok")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestControlTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{BaseURL: srv.URL, ControlTimeout: 50 * time.Millisecond})
	err := c.Reset(context.Background(), "tok")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != BasePath+"/complete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %q", ct)
		}
		var req CompleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Cookies) != 1 || req.Cookies[0].Name != "auth_token" {
			t.Errorf("cookies: %#v", req.Cookies)
		}
		if len(req.VisitedDomains) != 2 {
			t.Errorf("domains: %#v", req.VisitedDomains)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"connected_sites": []map[string]string{{"domain": "a.com", "status": "active"}},
		})
	})

	res, err := c.Complete(context.Background(), "tok",
		[]cookie.Cookie{{Name: "auth_token", Value: "v", Domain: ".a.com"}},
		[]string{"a.com", "sub.b.com"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Rejected != "" || len(res.ConnectedSites) != 1 || res.ConnectedSites[0].Domain != "a.com" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestComplete_RejectedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"cookies must not be empty"}`))
	})
	res, err := c.Complete(context.Background(), "tok", nil, nil)
	if err != nil {
		t.Fatalf("400 must not be an error, got %v", err)
	}
	if res.Rejected != "cookies must not be empty" {
		t.Fatalf("Rejected: got %q", res.Rejected)
	}
	if res.ConnectedSites == nil || len(res.ConnectedSites) != 0 {
		t.Fatalf("expected empty site list, got %#v", res.ConnectedSites)
	}
}

func TestComplete_RejectedPlain(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	})
	res, err := c.Complete(context.Background(), "tok", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rejected != defaultRejection {
		t.Fatalf("Rejected: got %q", res.Rejected)
	}
}

func TestComplete_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Complete(context.Background(), "tok", []cookie.Cookie{{Name: "sid"}}, nil)
	var se *ServerError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 ServerError, got %v", err)
	}
}

func TestReset(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodDelete || r.URL.Path != BasePath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Reset(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("reset endpoint not called")
	}
}

func TestReset_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := c.Reset(context.Background(), "tok"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != BasePath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"status":"active","connected_sites":[{"domain":"a.com"}],"last_synced_at":"2026-10-01T12:00:00Z"}`))
	})
	res, err := c.Status(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusActive || len(res.ConnectedSites) != 1 {
		t.Fatalf("unexpected status: %#v", res)
	}
	if res.LastSyncedAt == nil || res.LastSyncedAt.Time.Year() != 2026 {
		t.Fatalf("LastSyncedAt: %v", res.LastSyncedAt)
	}
	if res.ConnectedSites[0].State() != StatusActive || res.ConnectedSites[0].Name() != "a.com" {
		t.Fatalf("site fallbacks: %#v", res.ConnectedSites[0])
	}
}

func TestStatus_UnparsedTimestamp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"active","connected_sites":[],"last_synced_at":"2026-10-01 12:00:00.123456"}`))
	})
	res, err := c.Status(context.Background(), "tok")
	if err != nil {
		t.Fatalf("odd timestamp must not fail status: %v", err)
	}
	if res.LastSyncedAt == nil || res.LastSyncedAt.Valid() {
		t.Fatalf("LastSyncedAt: %#v", res.LastSyncedAt)
	}
	if got := res.LastSyncedAt.String(); got != "2026-10-01 12:00:00.123456" {
		t.Fatalf("String() = %q, want raw text", got)
	}
}

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		raw   string
	}{
		{`"2026-10-01T12:00:00Z"`, true, "2026-10-01T12:00:00Z"},
		{`"2026-10-01T12:00:00.5+02:00"`, true, "2026-10-01T12:00:00.5+02:00"},
		{`"yesterday"`, false, "yesterday"},
		{`1759320000`, false, "1759320000"},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := ts.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", tt.in, err)
		}
		if ts.Valid() != tt.valid || ts.Raw != tt.raw {
			t.Errorf("UnmarshalJSON(%s) = %#v", tt.in, ts)
		}
	}
}
