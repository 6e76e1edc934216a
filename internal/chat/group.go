package chat

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// DisplayResolver maps a room's counterparty identity onto a display name and
// avatar. Returning ok=false falls the room back to the representative
// record's sender full name, then to the raw identifier.
type DisplayResolver func(medium domain.Medium, identifier string) (name, avatar string, ok bool)

// PreviewFunc formats a record into the short preview text shown as a room's
// last message.
type PreviewFunc func(c *domain.Communication) string

// GroupRooms reduces a flat communication log into rooms. Records are scanned
// most-recent-first, so the first record seen for a key is the representative
// that seeds the preview and the sort date; older records only accumulate
// counters. The unread count adds one per unseen received record. The
// unreplied flag is decided exactly once per room, by the most recent
// received record: it is set when that record's status is neither Replied nor
// Closed, and older unreplied records can never re-raise it.
//
// The input slice is not mutated; grouping sorts a copy. Given an identical
// record set the output is identical, whatever the input order.
func GroupRooms(records []domain.Communication, resolve DisplayResolver, preview PreviewFunc) []Room {
	ordered := make([]*domain.Communication, 0, len(records))
	for i := range records {
		if records[i].CommunicationType != domain.CommunicationTypeDefault {
			continue
		}
		ordered = append(ordered, &records[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CommunicationDate.Equal(ordered[j].CommunicationDate) {
			return ordered[i].CommunicationDate.After(ordered[j].CommunicationDate)
		}
		// Same-timestamp records tie-break on id so the representative is
		// stable across scans.
		return ordered[i].ID > ordered[j].ID
	})

	type acc struct {
		room            Room
		rep             *domain.Communication
		unrepliedDecided bool
	}
	index := make(map[string]*acc)
	keys := make([]string, 0, 16)

	for _, c := range ordered {
		id := RoomIDFor(c)
		a, seen := index[id]
		if !seen {
			a = &acc{
				room: Room{
					ID:         id,
					Medium:     c.Medium,
					Identifier: ExternalIdentifier(c),
				},
				rep: c,
			}
			index[id] = a
			keys = append(keys, id)
		}
		if c.SentOrReceived == domain.DirectionReceived {
			if !c.Seen {
				a.room.UnreadCount++
			}
			if !a.unrepliedDecided {
				a.unrepliedDecided = true
				a.room.HasUnreplied = c.Status != domain.StatusReplied && c.Status != domain.StatusClosed
			}
		}
	}

	rooms := make([]Room, 0, len(keys))
	for _, id := range keys {
		a := index[id]
		rep := a.rep
		a.room.LastMessage = LastMessage{
			ID:        rep.ID,
			Subject:   rep.Subject,
			Direction: rep.SentOrReceived,
			Date:      rep.CommunicationDate,
		}
		if preview != nil {
			a.room.LastMessage.Content = preview(rep)
		}
		a.room.Name, a.room.Avatar = resolveDisplay(resolve, a.room.Medium, a.room.Identifier, rep)
		rooms = append(rooms, a.room)
	}

	SortRooms(rooms)
	return rooms
}

func resolveDisplay(resolve DisplayResolver, medium domain.Medium, identifier string, rep *domain.Communication) (string, string) {
	if resolve != nil {
		if name, avatar, ok := resolve(medium, identifier); ok && name != "" {
			return name, avatar
		}
	}
	if full := strings.TrimSpace(rep.SenderFullName); full != "" {
		return full, ""
	}
	if medium == domain.MediumEmail {
		if name := displayNameFromEmail(identifier); name != "" {
			return name, ""
		}
	}
	return identifier, ""
}

// displayNameFromEmail derives a readable name from an address's local part:
// "jane.doe@example.org" becomes "Jane Doe". Local parts without a single
// letter (ticket ids, bounce addresses) return "".
func displayNameFromEmail(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		return ""
	}
	words := strings.FieldsFunc(addr[:at], func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(words) == 0 {
		return ""
	}
	hasLetter := false
	for _, w := range words {
		if strings.ContainsFunc(w, func(r rune) bool {
			return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		}) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return ""
	}
	// cases.Caser carries state, so build one per call.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// SortRooms orders rooms in place: unreplied rooms before all others, then
// most recent representative first within each partition. Rooms with equal
// dates tie-break on id so the order is deterministic.
func SortRooms(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].HasUnreplied != rooms[j].HasUnreplied {
			return rooms[i].HasUnreplied
		}
		if !rooms[i].LastMessage.Date.Equal(rooms[j].LastMessage.Date) {
			return rooms[i].LastMessage.Date.After(rooms[j].LastMessage.Date)
		}
		return rooms[i].ID < rooms[j].ID
	})
}

// PageRooms applies head-based offset pagination to a sorted room list.
// Page numbers start at 1; a non-positive page or limit is normalized to 1.
func PageRooms(rooms []Room, page, limit int) (pageRooms []Room, total int, hasMore bool) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	total = len(rooms)
	offset := (page - 1) * limit
	if offset >= total {
		return []Room{}, total, false
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return rooms[offset:end], total, offset+limit < total
}

// TotalUnread sums the unread counts of every room.
func TotalUnread(rooms []Room) int {
	n := 0
	for i := range rooms {
		n += rooms[i].UnreadCount
	}
	return n
}
