package store

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStores implements every collaborator in process. It backs tests and
// database-less runs; the session engine never requires a database.
type MemoryStores struct {
	mu      sync.Mutex
	rooms   map[string]RoomRecord
	users   map[string]UserRecord
	results []MatchResult
}

// NewMemoryStores returns an empty in-memory store set.
func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		rooms: make(map[string]RoomRecord),
		users: make(map[string]UserRecord),
	}
}

// Stores exposes the in-memory set behind the collaborator interfaces.
func (m *MemoryStores) Stores() Stores {
	return Stores{Rooms: m, Users: m, History: m}
}

func (m *MemoryStores) Save(rec RoomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.rooms[rec.RoomID] = rec
	return nil
}

func (m *MemoryStores) Get(roomID string) (RoomRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return RoomRecord{}, fmt.Errorf("room %s not found", roomID)
	}
	return rec, nil
}

func (m *MemoryStores) SetGuest(roomID, guestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %s not found", roomID)
	}
	rec.GuestID = guestID
	m.rooms[roomID] = rec
	return nil
}

func (m *MemoryStores) SetInactive(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %s not found", roomID)
	}
	rec.IsActive = false
	m.rooms[roomID] = rec
	return nil
}

func (m *MemoryStores) Delete(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func (m *MemoryStores) PurgeStale(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, rec := range m.rooms {
		if !rec.IsActive || rec.CreatedAt.Before(cutoff) {
			delete(m.rooms, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStores) AddVictory(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.users[userID]
	rec.UserID = userID
	rec.Wins++
	rec.UpdatedAt = time.Now()
	m.users[userID] = rec
	return nil
}

func (m *MemoryStores) SetStatus(userID string, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.users[userID]
	rec.UserID = userID
	rec.Status = status
	rec.UpdatedAt = time.Now()
	m.users[userID] = rec
	return nil
}

func (m *MemoryStores) Append(result MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.PlayedAt.IsZero() {
		result.PlayedAt = time.Now()
	}
	m.results = append(m.results, result)
	return nil
}

// User returns the tracked record for userID, for tests and diagnostics.
func (m *MemoryStores) User(userID string) (UserRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[userID]
	return rec, ok
}

// History returns a copy of every appended result.
func (m *MemoryStores) History() []MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MatchResult, len(m.results))
	copy(out, m.results)
	return out
}

// RoomCount reports how many room records are held.
func (m *MemoryStores) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
