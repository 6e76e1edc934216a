package repo

import (
	"context"
	"testing"
	"time"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

func groupModels() []any {
	return []any{
		&domain.Contact{}, &domain.ContactPhone{},
		&domain.MessagingGroup{}, &domain.MessagingGroupMember{},
		&domain.GroupTextMessage{}, &domain.GroupTextMessageTarget{},
	}
}

func TestListDueGroupMessages(t *testing.T) {
	db := newRepoDB(t, groupModels()...)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := domain.GroupTextMessage{ID: "g1", Message: "hello", Status: domain.StatusScheduled, Scheduled: true, DeliveryDatetime: &past}
	notYet := domain.GroupTextMessage{ID: "g2", Message: "later", Status: domain.StatusScheduled, Scheduled: true, DeliveryDatetime: &future}
	alreadySent := domain.GroupTextMessage{ID: "g3", Message: "done", Status: domain.StatusSent, Scheduled: true, DeliveryDatetime: &past}
	draft := domain.GroupTextMessage{ID: "g4", Message: "draft", Status: domain.StatusDraft}

	for _, g := range []domain.GroupTextMessage{due, notYet, alreadySent, draft} {
		if err := db.Create(&g).Error; err != nil {
			t.Fatalf("seed %s: %v", g.ID, err)
		}
	}
	if err := db.Create(&domain.GroupTextMessageTarget{ID: "t1", GroupMessageID: "g1", GroupID: "grp1"}).Error; err != nil {
		t.Fatalf("seed target: %v", err)
	}

	got, err := ListDueGroupMessages(context.Background(), db, now)
	if err != nil {
		t.Fatalf("ListDueGroupMessages: %v", err)
	}
	if len(got) != 1 || got[0].ID != "g1" {
		t.Fatalf("expected only g1 due, got %+v", got)
	}
	if len(got[0].Targets) != 1 || got[0].Targets[0].GroupID != "grp1" {
		t.Fatalf("targets not preloaded: %+v", got[0].Targets)
	}
}

func TestGroupMessageStatus_Transitions(t *testing.T) {
	db := newRepoDB(t, groupModels()...)

	g := domain.GroupTextMessage{ID: "g1", Message: "m", Status: domain.StatusScheduled}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	s, err := GetGroupMessageStatus(context.Background(), db, "g1")
	if err != nil || s != domain.StatusScheduled {
		t.Fatalf("GetGroupMessageStatus: %v %q", err, s)
	}
	if err := UpdateGroupMessageStatus(context.Background(), db, "g1", domain.StatusSent); err != nil {
		t.Fatalf("UpdateGroupMessageStatus: %v", err)
	}
	s, _ = GetGroupMessageStatus(context.Background(), db, "g1")
	if s != domain.StatusSent {
		t.Fatalf("status = %q", s)
	}
	if err := UpdateGroupMessageStatus(context.Background(), db, "missing", domain.StatusSent); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetGroupMessageStatus(context.Background(), db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGroupRecipientPhones(t *testing.T) {
	db := newRepoDB(t, groupModels()...)

	// Contacts: jane (primary mobile), john (primary mobile, unsubscribed),
	// bob (primary mobile, in excluded group), ann (no primary mobile).
	seed := []struct {
		contact domain.Contact
		phone   *domain.ContactPhone
		groups  []string
	}{
		{domain.Contact{ID: "jane", FullName: "Jane"}, &domain.ContactPhone{ID: "p1", ContactID: "jane", Phone: "+12025550001", IsPrimaryMobileNo: true}, []string{"grpA"}},
		{domain.Contact{ID: "john", FullName: "John", Unsubscribed: true}, &domain.ContactPhone{ID: "p2", ContactID: "john", Phone: "+12025550002", IsPrimaryMobileNo: true}, []string{"grpA"}},
		{domain.Contact{ID: "bob", FullName: "Bob"}, &domain.ContactPhone{ID: "p3", ContactID: "bob", Phone: "+12025550003", IsPrimaryMobileNo: true}, []string{"grpA", "grpX"}},
		{domain.Contact{ID: "ann", FullName: "Ann"}, &domain.ContactPhone{ID: "p4", ContactID: "ann", Phone: "+12025550004"}, []string{"grpA"}},
	}
	for i, s := range seed {
		if err := db.Create(&s.contact).Error; err != nil {
			t.Fatalf("seed contact %d: %v", i, err)
		}
		if s.phone != nil {
			if err := db.Create(s.phone).Error; err != nil {
				t.Fatalf("seed phone %d: %v", i, err)
			}
		}
		for _, g := range s.groups {
			m := domain.MessagingGroupMember{ID: s.contact.ID + "-" + g, GroupID: g, ContactID: s.contact.ID}
			if err := db.Create(&m).Error; err != nil {
				t.Fatalf("seed member %d: %v", i, err)
			}
		}
	}

	phones, err := GroupRecipientPhones(context.Background(), db, []string{"grpA"}, []string{"grpX"})
	if err != nil {
		t.Fatalf("GroupRecipientPhones: %v", err)
	}
	if len(phones) != 1 || phones[0] != "+12025550001" {
		t.Fatalf("expected only jane's number, got %v", phones)
	}

	phones, err = GroupRecipientPhones(context.Background(), db, nil, nil)
	if err != nil || phones != nil {
		t.Fatalf("no groups should mean no recipients: %v %v", err, phones)
	}
}
