package mockapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/hyperaide-sync/internal/dbopen"
	"github.com/hazyhaar/hyperaide-sync/syncapi"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id             TEXT PRIMARY KEY,
	token_hash     TEXT NOT NULL,
	last_synced_at INTEGER
);

CREATE TABLE IF NOT EXISTS sites (
	account_id   TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	domain       TEXT NOT NULL,
	display_name TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'active',
	cookie_count INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (account_id, domain)
);
`

// errUnknownToken is returned by Authenticate when no account matches.
var errUnknownToken = errors.New("mockapi: unknown token")

// Store keeps accounts and their connected sites. Cookie values are never
// written.
type Store struct {
	db   *sql.DB
	cost int
}

// OpenStore opens (or creates) the database at path. Empty path means an
// in-memory database.
func OpenStore(path string, bcryptCost int) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithSchema(schema), dbopen.WithMkdirAll())
	if err != nil {
		return nil, err
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Store{db: db, cost: bcryptCost}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// EnsureToken registers token unless an account already holds it, and
// returns the account id.
func (s *Store) EnsureToken(ctx context.Context, token string) (string, error) {
	if id, err := s.Authenticate(ctx, token); err == nil {
		return id, nil
	} else if !errors.Is(err, errUnknownToken) {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.cost)
	if err != nil {
		return "", fmt.Errorf("mockapi: hash token: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, token_hash) VALUES (?, ?)`, id, string(hash)); err != nil {
		return "", fmt.Errorf("mockapi: insert account: %w", err)
	}
	return id, nil
}

// Authenticate returns the id of the account whose hash matches token.
func (s *Store) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errUnknownToken
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, token_hash FROM accounts`)
	if err != nil {
		return "", fmt.Errorf("mockapi: list accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return "", err
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
			return id, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return "", errUnknownToken
}

// Sites lists the account's connected sites ordered by domain.
func (s *Store) Sites(ctx context.Context, account string) ([]syncapi.Site, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, display_name, status FROM sites WHERE account_id = ? ORDER BY domain`, account)
	if err != nil {
		return nil, fmt.Errorf("mockapi: list sites: %w", err)
	}
	defer rows.Close()
	sites := []syncapi.Site{}
	for rows.Next() {
		var st syncapi.Site
		if err := rows.Scan(&st.Domain, &st.DisplayName, &st.Status); err != nil {
			return nil, err
		}
		sites = append(sites, st)
	}
	return sites, rows.Err()
}

// LastSynced returns when the account last completed a sync.
func (s *Store) LastSynced(ctx context.Context, account string) (*time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_synced_at FROM accounts WHERE id = ?`, account).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("mockapi: last synced: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	t := time.Unix(ts.Int64, 0).UTC()
	return &t, nil
}

// Upsert records the grouped sites of one upload and stamps the sync time.
func (s *Store) Upsert(ctx context.Context, account string, groups []siteGroup, now time.Time) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, g := range groups {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sites (account_id, domain, display_name, status, cookie_count, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (account_id, domain) DO UPDATE SET
					display_name = excluded.display_name,
					status       = excluded.status,
					cookie_count = excluded.cookie_count,
					updated_at   = excluded.updated_at`,
				account, g.Domain, g.DisplayName, syncapi.StatusActive, g.Cookies, now.Unix()); err != nil {
				return fmt.Errorf("mockapi: upsert %s: %w", g.Domain, err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE accounts SET last_synced_at = ? WHERE id = ?`, now.Unix(), account)
		return err
	})
}

// Reset drops every site of the account and clears its sync time.
func (s *Store) Reset(ctx context.Context, account string) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE account_id = ?`, account); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE accounts SET last_synced_at = NULL WHERE id = ?`, account)
		return err
	})
}
