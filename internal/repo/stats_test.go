package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCommunicationsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := CommunicationsStats(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error due to missing communications table")
	}
}

func TestCommunicationsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Communication{})
	count, maxAt, err := CommunicationsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("CommunicationsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestCommunicationsStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Communication{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max among eligible rows

	seed := []domain.Communication{
		{ID: "c1", CommunicationType: domain.CommunicationTypeDefault, Medium: domain.MediumSMS, SentOrReceived: domain.DirectionReceived, PhoneNo: "+1", CommunicationDate: t1, UpdatedAt: t1},
		{ID: "c2", CommunicationType: domain.CommunicationTypeDefault, Medium: domain.MediumEmail, SentOrReceived: domain.DirectionSent, Sender: "a@b.c", CommunicationDate: t2, UpdatedAt: t2},
		// System row must not count.
		{ID: "sys", CommunicationType: "Automated Message", Medium: domain.MediumEmail, SentOrReceived: domain.DirectionSent, CommunicationDate: t2, UpdatedAt: t2.Add(time.Hour)},
	}
	for _, c := range seed {
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}

	count, maxAt, err := CommunicationsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("CommunicationsStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count=2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max updated_at %v, got %v", t2, maxAt)
	}
}

func TestThreadStats(t *testing.T) {
	db := newTestDB(t, &domain.Communication{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	seed := []domain.Communication{
		{ID: "c1", CommunicationType: domain.CommunicationTypeDefault, Medium: domain.MediumSMS, SentOrReceived: domain.DirectionReceived, PhoneNo: "+1", CommunicationDate: t1, UpdatedAt: t1},
		{ID: "c2", CommunicationType: domain.CommunicationTypeDefault, Medium: domain.MediumSMS, SentOrReceived: domain.DirectionSent, PhoneNo: "+2", CommunicationDate: t1, UpdatedAt: t1},
	}
	for _, c := range seed {
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}

	count, maxAt, err := ThreadStats(context.Background(), db, domain.MediumSMS, "+1")
	if err != nil {
		t.Fatalf("ThreadStats: %v", err)
	}
	if count != 1 || maxAt == nil {
		t.Fatalf("expected (1, non-nil), got (%d, %v)", count, maxAt)
	}

	count, maxAt, err = ThreadStats(context.Background(), db, domain.MediumSMS, "+404")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("empty thread: (%d, %v, %v)", count, maxAt, err)
	}
}
