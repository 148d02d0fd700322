package credstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	access_token TEXT NOT NULL DEFAULT '',
	expires_at TEXT NOT NULL DEFAULT '',
	project TEXT NOT NULL DEFAULT '',
	model_mask INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL DEFAULT 'cooling',
	cooling_until TEXT NOT NULL DEFAULT '',
	cooling_reason TEXT NOT NULL DEFAULT '',
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	last_used_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
)`

// Store persists credentials to a SQLite database reachable via a
// `sqlite://path` database URL. All writes are serialized through
// a mutex; the Pool actor is still the sole logical writer, this lock only
// protects the underlying *sql.DB handle from concurrent driver misuse.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open connects to (and migrates) the SQLite database named by databaseURL,
// e.g. "sqlite://data.db" or a bare file path.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	path := strings.TrimPrefix(strings.TrimSpace(databaseURL), "sqlite://")
	if path == "" {
		path = "data.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("credstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY storms
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: ping: %w", err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DeriveID computes the stable credential id from its refresh token, hashed
// together with the provider key so the same token under two providers
// never collides.
func DeriveID(provider, refreshToken string) string {
	sum := blake2b.Sum256([]byte(provider + ":" + refreshToken))
	return hex.EncodeToString(sum[:16])
}

// Upsert inserts or updates a credential row by id.
func (s *Store) Upsert(ctx context.Context, c *Credential) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, provider, refresh_token, access_token, expires_at, project, model_mask, state, cooling_until, cooling_reason, consecutive_failures, last_used_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider=excluded.provider, refresh_token=excluded.refresh_token, access_token=excluded.access_token,
			expires_at=excluded.expires_at, project=excluded.project, model_mask=excluded.model_mask,
			state=excluded.state, cooling_until=excluded.cooling_until, cooling_reason=excluded.cooling_reason,
			consecutive_failures=excluded.consecutive_failures, last_used_at=excluded.last_used_at, updated_at=excluded.updated_at
	`,
		c.ID, c.Provider, c.RefreshToken, c.AccessToken, formatTime(c.ExpiresAt), c.Project, c.ModelMask, string(c.State),
		formatTime(c.CoolingUntil), c.CoolingReason, c.ConsecutiveFailures, formatTime(c.LastUsedAt), formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("credstore: upsert %s: %w", c.ID, err)
	}
	return nil
}

// LoadAll hydrates every credential row, used to populate the Pool at
// startup. Storage errors degrade callers to in-memory-only operation
// rather than failing the request path; see Store's package doc.
func (s *Store) LoadAll(ctx context.Context) ([]*Credential, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, provider, refresh_token, access_token, expires_at, project, model_mask, state, cooling_until, cooling_reason, consecutive_failures, last_used_at, updated_at FROM credentials`)
	if err != nil {
		return nil, fmt.Errorf("credstore: load_all: %w", err)
	}
	defer rows.Close()

	var out []*Credential
	for rows.Next() {
		var c Credential
		var expiresAt, coolingUntil, lastUsedAt, updatedAt, state string
		if err = rows.Scan(&c.ID, &c.Provider, &c.RefreshToken, &c.AccessToken, &expiresAt, &c.Project, &c.ModelMask, &state, &coolingUntil, &c.CoolingReason, &c.ConsecutiveFailures, &lastUsedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("credstore: scan: %w", err)
		}
		c.State = State(state)
		c.ExpiresAt = parseTime(expiresAt)
		c.CoolingUntil = parseTime(coolingUntil)
		c.LastUsedAt = parseTime(lastUsedAt)
		c.UpdatedAt = parseTime(updatedAt)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// UpdateTokens persists a fresh access token after a successful refresh.
func (s *Store) UpdateTokens(ctx context.Context, id, accessToken string, expiresAt time.Time, project string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE credentials SET access_token=?, expires_at=?, project=COALESCE(NULLIF(?, ''), project), updated_at=? WHERE id=?`,
		accessToken, formatTime(expiresAt), project, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("credstore: update_tokens %s: %w", id, err)
	}
	return nil
}

// Mark persists a bare state transition.
func (s *Store) Mark(ctx context.Context, id string, state State) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE credentials SET state=?, updated_at=? WHERE id=?`, string(state), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("credstore: mark %s: %w", id, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		log.Debugf("credstore: parse time %q: %v", s, err)
		return time.Time{}
	}
	return t
}
