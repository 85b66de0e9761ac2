package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoomLifecycle(t *testing.T) {
	m := NewMemoryStores()

	require.NoError(t, m.Save(RoomRecord{RoomID: "room-1", HostID: "alice", Kind: "shed", IsActive: true}))
	rec, err := m.Get("room-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.HostID)
	assert.False(t, rec.CreatedAt.IsZero(), "Save should stamp CreatedAt")

	require.NoError(t, m.SetGuest("room-1", "bob"))
	rec, err = m.Get("room-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.GuestID)

	require.NoError(t, m.SetInactive("room-1"))
	rec, err = m.Get("room-1")
	require.NoError(t, err)
	assert.False(t, rec.IsActive)

	require.NoError(t, m.Delete("room-1"))
	_, err = m.Get("room-1")
	assert.Error(t, err)
}

func TestMemoryRoomMutationsRequireExistingRoom(t *testing.T) {
	m := NewMemoryStores()
	assert.Error(t, m.SetGuest("ghost", "bob"))
	assert.Error(t, m.SetInactive("ghost"))
	assert.NoError(t, m.Delete("ghost"), "deleting a missing room is a no-op")
}

func TestMemoryPurgeStale(t *testing.T) {
	m := NewMemoryStores()
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, m.Save(RoomRecord{RoomID: "old", HostID: "a", IsActive: true, CreatedAt: old}))
	require.NoError(t, m.Save(RoomRecord{RoomID: "done", HostID: "b", IsActive: false, CreatedAt: time.Now()}))
	require.NoError(t, m.Save(RoomRecord{RoomID: "live", HostID: "c", IsActive: true, CreatedAt: time.Now()}))

	purged, err := m.PurgeStale(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, m.RoomCount())
	_, err = m.Get("live")
	assert.NoError(t, err)
}

func TestMemoryUserRecords(t *testing.T) {
	m := NewMemoryStores()

	require.NoError(t, m.AddVictory("alice"))
	require.NoError(t, m.AddVictory("alice"))
	require.NoError(t, m.SetStatus("alice", StatusPlaying))

	rec, ok := m.User("alice")
	require.True(t, ok)
	assert.Equal(t, 2, rec.Wins)
	assert.Equal(t, StatusPlaying, rec.Status)

	_, ok = m.User("ghost")
	assert.False(t, ok)
}

func TestMemoryHistoryAppend(t *testing.T) {
	m := NewMemoryStores()

	require.NoError(t, m.Append(MatchResult{GameID: "g1", Player1: "alice", Player2: "bob", Score1: 10, Score2: 8, Winner: "alice"}))
	require.NoError(t, m.Append(MatchResult{GameID: "g2", Player1: "carol", Player2: "dave", Score1: 9, Score2: 9, Winner: "Draw"}))

	results := m.History()
	require.Len(t, results, 2)
	assert.Equal(t, "alice", results[0].Winner)
	assert.Equal(t, "Draw", results[1].Winner)
	assert.False(t, results[0].PlayedAt.IsZero(), "Append should stamp PlayedAt")
}
