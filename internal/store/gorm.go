package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormStores backs every collaborator with one gorm database handle.
type GormStores struct {
	db *gorm.DB
}

// NewGormStores migrates the schema and returns the persistent store set.
func NewGormStores(db *gorm.DB) (*GormStores, error) {
	if err := db.AutoMigrate(&RoomRecord{}, &UserRecord{}, &MatchResult{}); err != nil {
		return nil, fmt.Errorf("migrate session schema: %w", err)
	}
	return &GormStores{db: db}, nil
}

// Stores exposes the gorm-backed set behind the collaborator interfaces.
func (g *GormStores) Stores() Stores {
	return Stores{Rooms: g, Users: g, History: g}
}

func (g *GormStores) Save(rec RoomRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return g.db.Create(&rec).Error
}

func (g *GormStores) Get(roomID string) (RoomRecord, error) {
	var rec RoomRecord
	err := g.db.First(&rec, "room_id = ?", roomID).Error
	return rec, err
}

func (g *GormStores) SetGuest(roomID, guestID string) error {
	result := g.db.Model(&RoomRecord{}).Where("room_id = ?", roomID).Update("guest_id", guestID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (g *GormStores) SetInactive(roomID string) error {
	result := g.db.Model(&RoomRecord{}).Where("room_id = ?", roomID).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (g *GormStores) Delete(roomID string) error {
	return g.db.Delete(&RoomRecord{}, "room_id = ?", roomID).Error
}

func (g *GormStores) PurgeStale(cutoff time.Time) (int, error) {
	result := g.db.Where("is_active = ? OR created_at < ?", false, cutoff).Delete(&RoomRecord{})
	return int(result.RowsAffected), result.Error
}

func (g *GormStores) AddVictory(userID string) error {
	rec := UserRecord{UserID: userID, Wins: 1, UpdatedAt: time.Now()}
	return g.db.Exec(
		"INSERT INTO user_records (user_id, wins, status, updated_at) VALUES (?, 1, 0, ?) "+
			"ON CONFLICT (user_id) DO UPDATE SET wins = user_records.wins + 1, updated_at = ?",
		rec.UserID, rec.UpdatedAt, rec.UpdatedAt,
	).Error
}

func (g *GormStores) SetStatus(userID string, status int) error {
	now := time.Now()
	return g.db.Exec(
		"INSERT INTO user_records (user_id, wins, status, updated_at) VALUES (?, 0, ?, ?) "+
			"ON CONFLICT (user_id) DO UPDATE SET status = ?, updated_at = ?",
		userID, status, now, status, now,
	).Error
}

func (g *GormStores) Append(result MatchResult) error {
	if result.PlayedAt.IsZero() {
		result.PlayedAt = time.Now()
	}
	return g.db.Create(&result).Error
}
