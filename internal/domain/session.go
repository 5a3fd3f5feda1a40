package domain

import "time"

// Roles a session can carry. They come from the marketplace's JWT claims.
const (
	RoleMarketer = "marketer"
	RoleCreator  = "creator"
	RoleAdmin    = "admin"
)

// EditSession is one user's open editing context on one offer. EditingFields
// is advisory only (shown to the other party as "currently editing"), it is
// not a lock. A session stays alive as long as it heartbeats; any call the
// session makes refreshes LastHeartbeat.
type EditSession struct {
	SessionID     string    `json:"session_id"`
	DocumentID    uint64    `json:"document_id"`
	UserID        uint64    `json:"user_id"`
	Role          string    `json:"role"`
	EditingFields []string  `json:"editing_fields"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}
