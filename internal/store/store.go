package store

import "time"

// Presence status values carried by UserRecord.Status.
const (
	StatusOffline = 0
	StatusOnline  = 1
	StatusPlaying = 2
)

// RoomRecord is the persisted shape of a matchmaking room.
type RoomRecord struct {
	RoomID    string    `gorm:"primaryKey" json:"room_id"`
	HostID    string    `gorm:"index;not null" json:"host_id"`
	GuestID   string    `gorm:"index" json:"guest_id"`
	Kind      string    `gorm:"type:varchar(16)" json:"kind"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRecord carries the slice of account state the session engine touches:
// the win counter and presence status. Account identity itself is owned by
// the external account service.
type UserRecord struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	Wins      int       `gorm:"default:0" json:"wins"`
	Status    int       `gorm:"default:0" json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MatchResult is one completed tile-matching game.
type MatchResult struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GameID   string    `gorm:"index;not null" json:"game_id"`
	Player1  string    `gorm:"not null" json:"player1"`
	Player2  string    `gorm:"not null" json:"player2"`
	Score1   int       `json:"score1"`
	Score2   int       `json:"score2"`
	Winner   string    `json:"winner"` // player id, or "Draw"
	PlayedAt time.Time `json:"played_at"`
}

// RoomStore persists matchmaking rooms. All calls are synchronous and
// best-effort: the in-memory room table stays authoritative when a call
// fails.
type RoomStore interface {
	Save(rec RoomRecord) error
	Get(roomID string) (RoomRecord, error)
	SetGuest(roomID, guestID string) error
	SetInactive(roomID string) error
	Delete(roomID string) error
	// PurgeStale removes inactive rooms plus any room created before cutoff,
	// and reports how many were removed. Rooms whose deletion failed at match
	// end linger in storage until this sweep.
	PurgeStale(cutoff time.Time) (int, error)
}

// UserRecordStore tracks per-player win counts and presence.
type UserRecordStore interface {
	AddVictory(userID string) error
	SetStatus(userID string, status int) error
}

// MatchHistoryStore appends completed tile-matching results.
type MatchHistoryStore interface {
	Append(result MatchResult) error
}

// Stores bundles the three collaborators the session engine consumes.
type Stores struct {
	Rooms   RoomStore
	Users   UserRecordStore
	History MatchHistoryStore
}
