package database

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dbehnke/rt4d-cps/pkg/addressbook"
)

// Contact is a stored address book entry
type Contact struct {
	DMRID     uint32    `gorm:"primarykey;not null" json:"dmr_id"`
	Callsign  string    `gorm:"index;size:20" json:"callsign"`
	Name      string    `gorm:"size:50" json:"name"`
	City      string    `gorm:"size:50" json:"city"`
	State     string    `gorm:"size:50" json:"state"`
	Country   string    `gorm:"index;size:50" json:"country"`
	Remarks   string    `gorm:"size:50" json:"remarks"`
	Source    string    `gorm:"size:20" json:"source"` // csv or radioid
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

// ContactFrom converts an address book entry for storage
func ContactFrom(c addressbook.GlobalContact, source string) Contact {
	return Contact{
		DMRID:    c.DMRID,
		Callsign: c.Callsign,
		Name:     c.Name,
		City:     c.City,
		State:    c.State,
		Country:  c.Country,
		Remarks:  c.Remarks,
		Source:   source,
	}
}

// GlobalContact converts the stored row back to an address book entry
func (c *Contact) GlobalContact() addressbook.GlobalContact {
	return addressbook.GlobalContact{
		DMRID:    c.DMRID,
		Callsign: c.Callsign,
		Name:     c.Name,
		City:     c.City,
		State:    c.State,
		Country:  c.Country,
		Remarks:  c.Remarks,
	}
}

// Location returns the formatted location string
func (c *Contact) Location() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.City, c.State, c.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Snapshot is a codeplug image saved after a radio read or before a write
type Snapshot struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Label     string    `gorm:"size:100" json:"label"`
	Port      string    `gorm:"size:100" json:"port"`
	Beta41    bool      `json:"beta41"`
	Channels  int       `json:"channels"`
	Contacts  int       `json:"contacts"`
	Image     []byte    `json:"-"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for Snapshot
func (Snapshot) TableName() string {
	return "snapshots"
}

// BeforeCreate assigns an ID and creation time when unset
func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return nil
}
