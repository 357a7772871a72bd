package database

import (
	"time"

	"gorm.io/gorm"
)

// SnapshotRepository handles codeplug snapshot operations
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create stores a snapshot
func (r *SnapshotRepository) Create(s *Snapshot) error {
	return r.db.Create(s).Error
}

// Get retrieves a snapshot including its image
func (r *SnapshotRepository) Get(id string) (*Snapshot, error) {
	var s Snapshot
	if err := r.db.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetRecent retrieves the most recent N snapshots without their images
func (r *SnapshotRepository) GetRecent(limit int) ([]Snapshot, error) {
	var snapshots []Snapshot
	err := r.db.Omit("image").Order("created_at DESC").Limit(limit).Find(&snapshots).Error
	return snapshots, err
}

// GetRecentPaginated retrieves snapshots with pagination
func (r *SnapshotRepository) GetRecentPaginated(page, perPage int) ([]Snapshot, int64, error) {
	var snapshots []Snapshot
	var total int64

	if err := r.db.Model(&Snapshot{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	err := r.db.Omit("image").
		Order("created_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&snapshots).Error

	return snapshots, total, err
}

// DeleteOlderThan deletes snapshots taken before the given time
func (r *SnapshotRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", before).Delete(&Snapshot{})
	return result.RowsAffected, result.Error
}
