package chat

import (
	"reflect"
	"testing"
	"time"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func comm(id string, medium domain.Medium, dir string, offsetMin int, mut func(*domain.Communication)) domain.Communication {
	c := domain.Communication{
		ID:                id,
		CommunicationType: domain.CommunicationTypeDefault,
		Medium:            medium,
		SentOrReceived:    dir,
		Status:            domain.StatusOpen,
		CommunicationDate: t0.Add(time.Duration(offsetMin) * time.Minute),
	}
	if medium.PhoneBased() {
		c.PhoneNo = "+12025551234"
	} else {
		if dir == domain.DirectionReceived {
			c.Sender = "jane@example.com"
		} else {
			c.Recipients = "jane@example.com"
		}
	}
	if mut != nil {
		mut(&c)
	}
	return c
}

func TestGroupRooms_GroupingAndUnread(t *testing.T) {
	records := []domain.Communication{
		comm("c1", domain.MediumSMS, domain.DirectionReceived, 0, nil),                                                // unseen
		comm("c2", domain.MediumSMS, domain.DirectionSent, 1, nil),                                                    //
		comm("c3", domain.MediumSMS, domain.DirectionReceived, 2, func(c *domain.Communication) { c.Seen = true }),    // seen
		comm("c4", domain.MediumEmail, domain.DirectionReceived, 3, nil),                                              // other room, unseen
		comm("x1", domain.MediumSMS, domain.DirectionReceived, 4, func(c *domain.Communication) { c.CommunicationType = "Automated Message" }),
	}

	rooms := GroupRooms(records, nil, nil)
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d: %+v", len(rooms), rooms)
	}

	byID := map[string]Room{}
	for _, r := range rooms {
		byID[r.ID] = r
	}
	sms, ok := byID["SMS:+12025551234"]
	if !ok {
		t.Fatalf("missing SMS room: %+v", rooms)
	}
	if sms.UnreadCount != 1 {
		t.Fatalf("sms unread = %d, want 1", sms.UnreadCount)
	}
	if sms.LastMessage.ID != "c3" {
		t.Fatalf("sms representative = %q, want c3 (most recent, automated row excluded)", sms.LastMessage.ID)
	}
	mail := byID["Email:jane@example.com"]
	if mail.UnreadCount != 1 {
		t.Fatalf("email unread = %d, want 1", mail.UnreadCount)
	}
}

func TestGroupRooms_Idempotent_OrderIndependent(t *testing.T) {
	records := []domain.Communication{
		comm("c1", domain.MediumSMS, domain.DirectionReceived, 0, nil),
		comm("c2", domain.MediumSMS, domain.DirectionSent, 5, nil),
		comm("c3", domain.MediumEmail, domain.DirectionReceived, 3, nil),
	}
	first := GroupRooms(records, nil, nil)
	// Reverse the input; the derived rooms must be identical.
	rev := []domain.Communication{records[2], records[1], records[0]}
	second := GroupRooms(rev, nil, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grouping not order-independent:\n%+v\nvs\n%+v", first, second)
	}
}

func TestGroupRooms_HasUnreplied_MostRecentReceivedDecides(t *testing.T) {
	// Older received record is unreplied, but the most recent received one
	// was already answered; the room must not be flagged.
	records := []domain.Communication{
		comm("old", domain.MediumSMS, domain.DirectionReceived, 0, nil), // status Open
		comm("new", domain.MediumSMS, domain.DirectionReceived, 10, func(c *domain.Communication) { c.Status = domain.StatusReplied }),
	}
	rooms := GroupRooms(records, nil, nil)
	if len(rooms) != 1 || rooms[0].HasUnreplied {
		t.Fatalf("stale unreplied flag resurrected: %+v", rooms)
	}

	// Flip the order of statuses: now the newest received is still open.
	records[0].Status = domain.StatusReplied
	records[1].Status = domain.StatusOpen
	rooms = GroupRooms(records, nil, nil)
	if len(rooms) != 1 || !rooms[0].HasUnreplied {
		t.Fatalf("expected unreplied room: %+v", rooms)
	}
}

func TestGroupRooms_DisplayResolution(t *testing.T) {
	records := []domain.Communication{
		comm("c1", domain.MediumSMS, domain.DirectionReceived, 0, func(c *domain.Communication) { c.SenderFullName = "Jane Doe" }),
	}

	// Contact hit wins.
	rooms := GroupRooms(records, func(m domain.Medium, id string) (string, string, bool) {
		return "Jane From CRM", "/avatars/jane.png", true
	}, nil)
	if rooms[0].Name != "Jane From CRM" || rooms[0].Avatar != "/avatars/jane.png" {
		t.Fatalf("contact resolution ignored: %+v", rooms[0])
	}

	// No contact: fall back to sender full name.
	rooms = GroupRooms(records, nil, nil)
	if rooms[0].Name != "Jane Doe" {
		t.Fatalf("full-name fallback: got %q", rooms[0].Name)
	}

	// Neither: raw identifier.
	records[0].SenderFullName = ""
	rooms = GroupRooms(records, nil, nil)
	if rooms[0].Name != "+12025551234" {
		t.Fatalf("identifier fallback: got %q", rooms[0].Name)
	}
}

func TestGroupRooms_EmailNameDerivedFromAddress(t *testing.T) {
	records := []domain.Communication{
		comm("c1", domain.MediumEmail, domain.DirectionReceived, 0, func(c *domain.Communication) {
			c.Sender = "jane.doe@example.com"
		}),
	}
	rooms := GroupRooms(records, nil, nil)
	if rooms[0].Name != "Jane Doe" {
		t.Fatalf("derived email name: got %q", rooms[0].Name)
	}
}

func Test_displayNameFromEmail(t *testing.T) {
	cases := []struct{ in, want string }{
		{"jane.doe@example.com", "Jane Doe"},
		{"bob_jones+crm@example.com", "Bob Jones Crm"},
		{"support@example.com", "Support"},
		{"12345@example.com", ""},
		{"@example.com", ""},
		{"not-an-address", ""},
	}
	for _, tc := range cases {
		if got := displayNameFromEmail(tc.in); got != tc.want {
			t.Fatalf("displayNameFromEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGroupRooms_EmptyIdentifierStillARoom(t *testing.T) {
	records := []domain.Communication{
		comm("c1", domain.MediumEmail, domain.DirectionSent, 0, func(c *domain.Communication) { c.Recipients = "" }),
	}
	rooms := GroupRooms(records, nil, nil)
	if len(rooms) != 1 || rooms[0].ID != "Email:" {
		t.Fatalf("empty-identifier room dropped: %+v", rooms)
	}
}

func TestSortRooms_UnrepliedFirstThenDate(t *testing.T) {
	older := Room{ID: "SMS:+1", HasUnreplied: true, LastMessage: LastMessage{Date: t0}}
	newer := Room{ID: "SMS:+2", HasUnreplied: false, LastMessage: LastMessage{Date: t0.Add(time.Hour)}}
	rooms := []Room{newer, older}
	SortRooms(rooms)
	if rooms[0].ID != "SMS:+1" {
		t.Fatalf("unreplied room should sort first even when older: %+v", rooms)
	}
}

func TestPageRooms(t *testing.T) {
	rooms := make([]Room, 5)
	for i := range rooms {
		rooms[i].ID = string(rune('a' + i))
	}

	page1, total, more := PageRooms(rooms, 1, 2)
	if total != 5 || len(page1) != 2 || !more {
		t.Fatalf("page 1: len=%d total=%d more=%v", len(page1), total, more)
	}
	page3, _, more := PageRooms(rooms, 3, 2)
	if len(page3) != 1 || more {
		t.Fatalf("page 3: len=%d more=%v", len(page3), more)
	}
	empty, _, more := PageRooms(rooms, 4, 2)
	if len(empty) != 0 || more {
		t.Fatalf("past-the-end page: len=%d more=%v", len(empty), more)
	}
}

func TestTotalUnread(t *testing.T) {
	rooms := []Room{{UnreadCount: 2}, {UnreadCount: 0}, {UnreadCount: 3}}
	if got := TotalUnread(rooms); got != 5 {
		t.Fatalf("TotalUnread = %d, want 5", got)
	}
}
