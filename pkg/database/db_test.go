package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/logger"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})
	db, err := NewDB(Config{Path: filepath.Join(t.TempDir(), "test.db")}, log)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB(t *testing.T) {
	db := newTestDB(t)
	if db.db == nil {
		t.Error("Expected non-nil database connection")
	}
}

func TestNewDB_Memory(t *testing.T) {
	db, err := NewDB(Config{Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewContactRepository(db.GetDB())
	if err := repo.Upsert(&Contact{DMRID: 1, Callsign: "A"}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if n, _ := repo.Count(); n != 1 {
		t.Errorf("Expected 1 contact, got %d", n)
	}
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "rt4d.db")
	db, err := NewDB(Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("Failed to create database in nested dir: %v", err)
	}
	_ = db.Close()
}

func TestSnapshot_BeforeCreate(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t).GetDB())

	s := &Snapshot{Label: "radio read", Image: []byte{1, 2, 3}}
	if err := repo.Create(s); err != nil {
		t.Fatalf("Failed to create snapshot: %v", err)
	}
	if s.ID == "" {
		t.Error("Expected ID to be set by hook")
	}
	if s.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set by hook")
	}

	got, err := repo.Get(s.ID)
	if err != nil {
		t.Fatalf("Failed to get snapshot: %v", err)
	}
	if len(got.Image) != 3 {
		t.Errorf("Expected image of 3 bytes, got %d", len(got.Image))
	}
}

func TestSnapshotRepository_GetRecent(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t).GetDB())

	now := time.Now()
	for i := 0; i < 5; i++ {
		s := &Snapshot{
			Label:     "snap",
			Image:     make([]byte, 16),
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(s); err != nil {
			t.Fatalf("Failed to create snapshot %d: %v", i, err)
		}
	}

	snapshots, err := repo.GetRecent(3)
	if err != nil {
		t.Fatalf("Failed to get recent snapshots: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].CreatedAt.Before(snapshots[1].CreatedAt) {
		t.Error("Expected snapshots to be ordered by created_at DESC")
	}
	if snapshots[0].Image != nil {
		t.Error("Expected listing to omit images")
	}
}

func TestSnapshotRepository_GetRecentPaginated(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t).GetDB())

	now := time.Now()
	for i := 0; i < 10; i++ {
		if err := repo.Create(&Snapshot{CreatedAt: now.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Failed to create snapshot %d: %v", i, err)
		}
	}

	page, total, err := repo.GetRecentPaginated(2, 4)
	if err != nil {
		t.Fatalf("Failed to get page: %v", err)
	}
	if total != 10 {
		t.Errorf("Expected total of 10, got %d", total)
	}
	if len(page) != 4 {
		t.Errorf("Expected 4 snapshots on page 2, got %d", len(page))
	}
}

func TestSnapshotRepository_DeleteOlderThan(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t).GetDB())

	now := time.Now()
	_ = repo.Create(&Snapshot{CreatedAt: now.Add(-48 * time.Hour)})
	_ = repo.Create(&Snapshot{CreatedAt: now.Add(-72 * time.Hour)})
	_ = repo.Create(&Snapshot{CreatedAt: now})

	n, err := repo.DeleteOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 deleted, got %d", n)
	}
}
