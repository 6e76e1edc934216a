package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// ----- Fake repo -----

type fakeOptOutRepo struct {
	contacts []domain.Contact
	listErr  error

	unsubIDs []string
	flipped  int64

	created []*domain.Communication
}

func (r *fakeOptOutRepo) ListContactsByPhone(ctx context.Context, db *gorm.DB, phone string) ([]domain.Contact, error) {
	return r.contacts, r.listErr
}

func (r *fakeOptOutRepo) UnsubscribeContacts(ctx context.Context, db *gorm.DB, ids []string) (int64, error) {
	r.unsubIDs = ids
	return r.flipped, nil
}

func (r *fakeOptOutRepo) CreateCommunication(ctx context.Context, db *gorm.DB, c *domain.Communication) error {
	r.created = append(r.created, c)
	return nil
}

// ----- Tests -----

func TestIsStopMessage(t *testing.T) {
	cases := map[string]bool{
		"stop":         true,
		"STOP":         true,
		"  Stop  ":     true,
		"stop it":      false,
		"please stop":  false,
		"unsubscribe":  false,
		"":             false,
		"stop\nplease": false,
	}
	for in, want := range cases {
		if got := IsStopMessage(in); got != want {
			t.Errorf("IsStopMessage(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestProcessStop_UnsubscribesAllHolders(t *testing.T) {
	r := &fakeOptOutRepo{
		contacts: []domain.Contact{{ID: "c1"}, {ID: "c2"}},
		flipped:  2,
	}
	sms := &fakeSMS{sid: "SM1"}
	s := NewOptOutService(nil, r, sms)

	n, err := s.ProcessStop(context.Background(), "+15550000001")
	if err != nil {
		t.Fatalf("ProcessStop: %v", err)
	}
	if n != 2 {
		t.Fatalf("flipped = %d; want 2", n)
	}
	if len(r.unsubIDs) != 2 || r.unsubIDs[0] != "c1" || r.unsubIDs[1] != "c2" {
		t.Fatalf("unsubscribed = %v", r.unsubIDs)
	}
	if sms.calls != 1 || sms.gotBody != optOutConfirmation {
		t.Fatalf("confirmation sms = %d calls, body %q", sms.calls, sms.gotBody)
	}
	if len(r.created) != 1 {
		t.Fatalf("confirmation record count = %d", len(r.created))
	}
	rec := r.created[0]
	if rec.SentOrReceived != domain.DirectionSent || rec.TextContent != optOutConfirmation {
		t.Fatalf("confirmation record = %+v", rec)
	}
	if rec.DeliveryStatus != domain.DeliverySent || rec.MessageID != "SM1" {
		t.Fatalf("confirmation delivery = %+v", rec)
	}
}

func TestProcessStop_ConfirmationFailureKeepsOptOut(t *testing.T) {
	r := &fakeOptOutRepo{contacts: []domain.Contact{{ID: "c1"}}, flipped: 1}
	s := NewOptOutService(nil, r, &fakeSMS{err: errors.New("carrier down")})

	n, err := s.ProcessStop(context.Background(), "+15550000001")
	if err != nil || n != 1 {
		t.Fatalf("ProcessStop = %d, %v; want 1, nil", n, err)
	}
	if len(r.created) != 1 || r.created[0].DeliveryStatus != domain.DeliveryError {
		t.Fatalf("failed confirmation must still be recorded: %+v", r.created)
	}
}

func TestProcessStop_NoContacts(t *testing.T) {
	r := &fakeOptOutRepo{}
	sms := &fakeSMS{sid: "SM1"}
	s := NewOptOutService(nil, r, sms)

	n, err := s.ProcessStop(context.Background(), "+15550000009")
	if err != nil || n != 0 {
		t.Fatalf("ProcessStop = %d, %v", n, err)
	}
	// The confirmation still goes out even when no contact holds the number.
	if sms.calls != 1 {
		t.Fatalf("confirmation calls = %d; want 1", sms.calls)
	}
}
