// Package credstore implements the durable credential store: a
// SQLite-backed table of {id, refresh_token, access_token, expiry,
// model_mask, state} rows, hydrated into the in-memory Pool at startup and
// mutated only through it thereafter.
package credstore

import "time"

// State is the lifecycle state of a credential.
type State string

const (
	StateHealthy    State = "healthy"
	StateRefreshing State = "refreshing"
	StateCooling    State = "cooling"
	StateExhausted  State = "exhausted"
	StateDead       State = "dead"
)

// Credential is the durable record owned by the Store; the Pool actor holds
// the authoritative in-memory copy and is the only writer.
type Credential struct {
	ID                  string
	Provider            string
	RefreshToken        string
	AccessToken         string
	ExpiresAt           time.Time
	Project             string
	ModelMask           uint64
	State               State
	CoolingUntil        time.Time
	CoolingReason       string
	ConsecutiveFailures int
	LastUsedAt          time.Time
	UpdatedAt           time.Time
}

// SafetyMargin is subtracted from ExpiresAt when deciding whether an access
// token is still usable.
const SafetyMargin = 60 * time.Second

// Usable reports whether the credential's access token can be handed out
// right now without a refresh.
func (c *Credential) Usable(now time.Time) bool {
	if c == nil || c.State != StateHealthy {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-SafetyMargin))
}
