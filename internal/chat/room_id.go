package chat

import (
	"errors"
	"strings"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// ErrInvalidRoomID reports a room id that cannot be split into a medium and
// an identifier.
var ErrInvalidRoomID = errors.New("invalid room id")

// FormatRoomID builds the wire form of a room identity: "{medium}:{identifier}".
// No reference suffix is emitted; ParseRoomID tolerates one for backward
// compatibility but nothing here produces it.
func FormatRoomID(medium domain.Medium, identifier string) string {
	return string(medium) + ":" + identifier
}

// ParseRoomID splits a wire room id back into (medium, identifier). The split
// is on the first ':' only, so identifiers containing a colon survive intact
// along with any legacy reference suffix glued onto them. An id with no colon
// is invalid; an empty identifier is valid but degenerate (an empty-identifier
// room groups records that resolved no counterparty).
func ParseRoomID(roomID string) (domain.Medium, string, error) {
	medium, identifier, ok := strings.Cut(roomID, ":")
	if !ok || medium == "" {
		return "", "", ErrInvalidRoomID
	}
	m := domain.ParseMedium(medium)
	if m == "" {
		return "", "", ErrInvalidRoomID
	}
	return m, identifier, nil
}

// ExternalIdentifier derives the counterparty identity of a record: the phone
// number for phone-based media; for email, the sender of a received record or
// the first recipient token of a sent one. The empty string is a legitimate
// (degenerate) result when the record resolved no counterparty.
func ExternalIdentifier(c *domain.Communication) string {
	if c.Medium.PhoneBased() {
		return strings.TrimSpace(c.PhoneNo)
	}
	if c.SentOrReceived == domain.DirectionReceived {
		return strings.TrimSpace(c.Sender)
	}
	first, _, _ := strings.Cut(c.Recipients, ",")
	return strings.TrimSpace(first)
}

// RoomIDFor computes the room a record belongs to.
func RoomIDFor(c *domain.Communication) string {
	return FormatRoomID(c.Medium, ExternalIdentifier(c))
}

// SenderID resolves the asymmetric sender identity of a record: sent records
// belong to the acting platform account (user, falling back to the sender
// address); received records belong to the counterparty (phone number for
// phone-based media, sender address otherwise).
func SenderID(c *domain.Communication) string {
	if c.SentOrReceived == domain.DirectionSent {
		if c.User != "" {
			return c.User
		}
		return c.Sender
	}
	if c.Medium.PhoneBased() {
		return c.PhoneNo
	}
	return c.Sender
}
