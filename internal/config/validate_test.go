package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		api     string
		wantErr error
		ok      bool
	}{
		{"https", "https://api.example.com", nil, true},
		{"localhost http", "http://localhost:4000", nil, true},
		{"loopback ip", "http://127.0.0.1:9999", nil, true},
		{"remote http", "http://api.example.com", ErrInsecureURL, false},
		{"ftp", "ftp://api.example.com", nil, false},
		{"no host", "https://", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.APIURL = tt.api
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolve_RejectsInsecureOverride(t *testing.T) {
	env := map[string]string{EnvAPIURL: "http://evil.example.com"}
	_, err := Resolve("", func(k string) string { return env[k] }, Overrides{})
	if !errors.Is(err, ErrInsecureURL) {
		t.Fatalf("err = %v, want ErrInsecureURL", err)
	}
}
