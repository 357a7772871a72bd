package database

import (
	"strings"

	"gorm.io/gorm"
)

// ContactRepository handles address book database operations
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Upsert creates or updates a contact
func (r *ContactRepository) Upsert(c *Contact) error {
	return r.db.Save(c).Error
}

// UpsertBatch upserts contacts in one transaction, batchSize rows at a time
func (r *ContactRepository) UpsertBatch(contacts []Contact, batchSize int) error {
	if len(contacts) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(contacts)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < len(contacts); i += batchSize {
			end := i + batchSize
			if end > len(contacts) {
				end = len(contacts)
			}
			batch := contacts[i:end]
			if err := tx.Save(&batch).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByDMRID retrieves a contact by DMR ID
func (r *ContactRepository) GetByDMRID(id uint32) (*Contact, error) {
	var c Contact
	if err := r.db.Where("dmr_id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByCallsign retrieves a contact by callsign
func (r *ContactRepository) GetByCallsign(callsign string) (*Contact, error) {
	var c Contact
	if err := r.db.Where("UPPER(callsign) = ?", strings.ToUpper(callsign)).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Search returns contacts whose ID, callsign or name contain term
func (r *ContactRepository) Search(term string, limit int) ([]Contact, error) {
	var contacts []Contact
	like := "%" + strings.ToLower(term) + "%"
	err := r.db.Where("CAST(dmr_id AS TEXT) LIKE ? OR LOWER(callsign) LIKE ? OR LOWER(name) LIKE ?", like, like, like).
		Order("dmr_id").
		Limit(limit).
		Find(&contacts).Error
	return contacts, err
}

// All returns every contact ordered by DMR ID, optionally limited to one
// country
func (r *ContactRepository) All(country string) ([]Contact, error) {
	var contacts []Contact
	q := r.db.Order("dmr_id")
	if country != "" {
		q = q.Where("LOWER(country) = ?", strings.ToLower(country))
	}
	err := q.Find(&contacts).Error
	return contacts, err
}

// Count returns the total number of contacts
func (r *ContactRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&Contact{}).Count(&count).Error
	return count, err
}

// DeleteAll removes every contact
func (r *ContactRepository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Contact{}).Error
}
