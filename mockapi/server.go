// Package mockapi is a local implementation of the browser sync API used by
// --dev runs. It serves the four sync endpoints and the welcome page shown in
// the capture browser.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/hyperaide-sync/syncapi"
)

// Config configures a Server.
type Config struct {
	// Tokens accepted by the API. They are kept only as bcrypt hashes.
	Tokens []string `yaml:"tokens"`

	// DB is the sqlite path. Empty means in-memory.
	DB string `yaml:"db"`

	APIAddr     string `yaml:"api_addr"`
	WelcomeAddr string `yaml:"welcome_addr"`

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int `yaml:"bcrypt_cost"`

	Logger *slog.Logger `yaml:"-"`

	// Now is the clock. Default: time.Now.
	Now func() time.Time `yaml:"-"`
}

func (c *Config) defaults() {
	if c.APIAddr == "" {
		c.APIAddr = "localhost:4000"
	}
	if c.WelcomeAddr == "" {
		c.WelcomeAddr = "localhost:3000"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Server serves the sync API.
type Server struct {
	cfg   Config
	store *Store
}

// New opens the store and registers cfg.Tokens.
func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.defaults()
	store, err := OpenStore(cfg.DB, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	for _, tok := range cfg.Tokens {
		if tok == "" {
			continue
		}
		if _, err := store.EnsureToken(ctx, tok); err != nil {
			store.Close()
			return nil, err
		}
	}
	cfg.Logger.Info("mockapi: ready", "tokens", len(cfg.Tokens), "db", cfg.DB)
	return &Server{cfg: cfg, store: store}, nil
}

// Close closes the store.
func (s *Server) Close() error { return s.store.Close() }

// Config returns the resolved configuration.
func (s *Server) Config() Config { return s.cfg }

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(apiHeaders()))
	r.Use(maxBody(maxUploadBytes))
	r.Use(traceID(s.cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(syncapi.BasePath, func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/start", s.handleStart)
		r.Post("/complete", s.handleComplete)
		r.Delete("/", s.handleReset)
		r.Get("/", s.handleStatus)
	})
	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.store.Authenticate(r.Context(), r.Header.Get(syncapi.HeaderToken))
		if errors.Is(err, errUnknownToken) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid sync token"})
			return
		}
		if err != nil {
			s.internal(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), accountKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.Sites(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.internal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncapi.StartResult{Existing: len(sites) > 0, ConnectedSites: sites})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req syncapi.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if len(req.Cookies) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No cookies provided"})
		return
	}

	groups := groupSites(req.Cookies)
	now := s.cfg.Now().UTC().Truncate(time.Second)
	if err := s.store.Upsert(r.Context(), accountFrom(r.Context()), groups, now); err != nil {
		s.internal(w, r, err)
		return
	}
	loggerFrom(r.Context()).Info("mockapi: sync complete",
		"cookies", len(req.Cookies), "visited", len(req.VisitedDomains), "sites", len(groups))

	sites := make([]syncapi.Site, 0, len(groups))
	for _, g := range groups {
		sites = append(sites, syncapi.Site{DisplayName: g.DisplayName, Domain: g.Domain, Status: syncapi.StatusActive})
	}
	writeJSON(w, http.StatusOK, syncapi.SyncResult{ConnectedSites: sites, LastSyncedAt: syncapi.NewTimestamp(now)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context(), accountFrom(r.Context())); err != nil {
		s.internal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFrom(ctx)
	sites, err := s.store.Sites(ctx, account)
	if err != nil {
		s.internal(w, r, err)
		return
	}
	last, err := s.store.LastSynced(ctx, account)
	if err != nil {
		s.internal(w, r, err)
		return
	}
	status := syncapi.StatusNotSynced
	if last != nil || len(sites) > 0 {
		status = syncapi.StatusActive
	}
	res := syncapi.StatusResult{Status: status, ConnectedSites: sites}
	if last != nil {
		res.LastSyncedAt = syncapi.NewTimestamp(*last)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) internal(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r.Context()).Error("mockapi: request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
