// Package syncflow sequences the sync, status and reset workflows: token
// check, capture session, classification and upload.
package syncflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/hyperaide-sync/capture"
	"github.com/hazyhaar/hyperaide-sync/cookie"
	"github.com/hazyhaar/hyperaide-sync/syncapi"
)

// ErrMissingToken is returned when no sync token was supplied.
var ErrMissingToken = errors.New("syncflow: missing sync token")

// Transport is the remote side of the workflows. *syncapi.Client satisfies it.
type Transport interface {
	Start(ctx context.Context, token string) (*syncapi.StartResult, error)
	Complete(ctx context.Context, token string, cookies []cookie.Cookie, visitedDomains []string) (*syncapi.SyncResult, error)
	Reset(ctx context.Context, token string) error
	Status(ctx context.Context, token string) (*syncapi.StatusResult, error)
}

// Session runs one capture. *capture.Controller satisfies it.
type Session interface {
	Run(ctx context.Context) (*capture.Result, error)
}

// Reporter receives progress while a sync is running. Results are returned
// from the workflow methods.
type Reporter interface {
	// Existing is called when the server already holds sites for the token.
	Existing(sites []syncapi.Site)
	// CaptureStarted is called right before the browser opens.
	CaptureStarted()
	// Captured is called once the browser session has ended.
	Captured(res *capture.Result)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Config configures an Orchestrator.
type Config struct {
	Transport Transport

	// NewSession creates the capture session for one sync.
	NewSession func() Session

	Reporter  Reporter
	Confirmer Confirmer
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Reporter == nil {
		c.Reporter = nopReporter{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Orchestrator runs the workflows. One workflow at a time.
type Orchestrator struct {
	cfg Config
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	cfg.defaults()
	return &Orchestrator{cfg: cfg}
}

// SyncOutcome is what a sync produced.
type SyncOutcome struct {
	// Existing lists sites the server already had, when it reported any.
	Existing []syncapi.Site

	Capture *capture.Result

	// Cancelled: the capture was interrupted; nothing was uploaded.
	Cancelled bool

	// NothingCaptured: no auth cookie survived classification; nothing was
	// uploaded.
	NothingCaptured bool

	// Result is the server summary. Nil when complete was not called.
	Result *syncapi.SyncResult
}

// Uploaded reports whether the complete call was made.
func (o *SyncOutcome) Uploaded() bool { return o.Result != nil }

// Sync validates the token, runs a capture session and uploads the result.
func (o *Orchestrator) Sync(ctx context.Context, token string) (*SyncOutcome, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	log := o.cfg.Logger

	start, err := o.cfg.Transport.Start(ctx, token)
	if err != nil {
		return nil, err
	}

	out := &SyncOutcome{}
	if start.Existing && len(start.ConnectedSites) > 0 {
		out.Existing = start.ConnectedSites
		o.cfg.Reporter.Existing(start.ConnectedSites)
	}

	o.cfg.Reporter.CaptureStarted()
	res, err := o.cfg.NewSession().Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("syncflow: capture: %w", err)
	}
	out.Capture = res
	o.cfg.Reporter.Captured(res)

	if res.Cancelled() {
		log.Info("syncflow: capture cancelled")
		out.Cancelled = true
		return out, nil
	}
	if len(res.Cookies) == 0 {
		log.Info("syncflow: no auth cookies captured", "observed", res.Observed)
		out.NothingCaptured = true
		return out, nil
	}

	// The capture is over: an interrupt from here on must not abort the
	// upload, which stays bounded by the transport's own timeout.
	result, err := o.cfg.Transport.Complete(context.WithoutCancel(ctx), token, res.Cookies, res.Domains)
	if err != nil {
		return nil, err
	}
	out.Result = result
	log.Info("syncflow: sync complete",
		"sites", len(result.ConnectedSites), "rejected", result.Rejected != "")
	return out, nil
}

// Status returns the server's view of the sync.
func (o *Orchestrator) Status(ctx context.Context, token string) (*syncapi.StatusResult, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return o.cfg.Transport.Status(ctx, token)
}

// ResetQuestion is asked before a non-forced reset.
const ResetQuestion = "This will disconnect all synced sites. Are you sure?"

// Reset disconnects every synced site. Unless force is set the Confirmer is
// asked first; done is false when the user declined.
func (o *Orchestrator) Reset(ctx context.Context, token string, force bool) (done bool, err error) {
	if token == "" {
		return false, ErrMissingToken
	}
	if !force && o.cfg.Confirmer != nil {
		ok, err := o.cfg.Confirmer.Confirm(ResetQuestion)
		if err != nil {
			return false, fmt.Errorf("syncflow: confirm: %w", err)
		}
		if !ok {
			return false, nil
		}
	}
	if err := o.cfg.Transport.Reset(ctx, token); err != nil {
		return false, err
	}
	return true, nil
}

type nopReporter struct{}

func (nopReporter) Existing([]syncapi.Site)  {}
func (nopReporter) CaptureStarted()          {}
func (nopReporter) Captured(*capture.Result) {}
