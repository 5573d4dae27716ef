package syncapi

import "github.com/hazyhaar/hyperaide-sync/cookie"

// Site is a connected site as reported by the server.
type Site struct {
	DisplayName string `json:"display_name,omitempty"`
	Domain      string `json:"domain"`
	Status      string `json:"status,omitempty"`
}

// Name returns the display name, falling back to the domain.
func (s Site) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Domain
}

// State returns the status, falling back to "active".
func (s Site) State() string {
	if s.Status != "" {
		return s.Status
	}
	return StatusActive
}

// Sync states reported by the status endpoint.
const (
	StatusNotSynced = "not_synced"
	StatusActive    = "active"
)

// StartResult is the response to Start.
type StartResult struct {
	Existing       bool   `json:"existing"`
	ConnectedSites []Site `json:"connected_sites"`
}

// CompleteRequest is the upload body sent by Complete.
type CompleteRequest struct {
	Cookies        []cookie.Cookie `json:"cookies"`
	VisitedDomains []string        `json:"visited_domains"`
}

// SyncResult is the server summary of an upload. Rejected carries the
// server's message when the upload was declined by validation; in that case
// ConnectedSites is empty.
type SyncResult struct {
	ConnectedSites []Site     `json:"connected_sites"`
	Existing       bool       `json:"existing,omitempty"`
	LastSyncedAt   *Timestamp `json:"last_synced_at,omitempty"`
	Rejected       string     `json:"-"`
}

// StatusResult is the response to Status.
type StatusResult struct {
	Status         string     `json:"status"`
	ConnectedSites []Site     `json:"connected_sites"`
	LastSyncedAt   *Timestamp `json:"last_synced_at,omitempty"`
}

// errorBody is the optional JSON body of a 400 answer.
type errorBody struct {
	Error string `json:"error"`
}
