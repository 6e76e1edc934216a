// Package chat implements the conversation-aggregation core: deriving stable
// room identities from flat communication records, grouping the log into
// rooms with unread and unreplied reductions, resolving the asymmetric sender
// identity of sent vs. received records, and windowing message pages from the
// tail of a thread.
//
// Everything in this package is pure: no I/O, no clocks, no store access.
// Callers fetch records through the repo layer and inject lookups (contact
// display names, formatted previews) as functions.
package chat

import (
	"time"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
)

// Room is a derived conversation grouping. Rooms are never persisted; every
// field is recomputed from the communication log on each read.
type Room struct {
	ID           string        `json:"room_id"`
	Medium       domain.Medium `json:"medium"`
	Identifier   string        `json:"identifier"`
	Name         string        `json:"room_name"`
	Avatar       string        `json:"avatar,omitempty"`
	UnreadCount  int           `json:"unread_count"`
	HasUnreplied bool          `json:"has_unreplied"`
	LastMessage  LastMessage   `json:"last_message"`
}

// LastMessage is the representative preview for a room: the most recent
// record by communication date.
type LastMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Subject   string    `json:"subject,omitempty"`
	Direction string    `json:"direction"`
	Date      time.Time `json:"date"`
}

// Message is the display-ready view of one communication record.
type Message struct {
	ID             string        `json:"id"`
	RoomID         string        `json:"room_id"`
	SenderID       string        `json:"sender_id"`
	SenderName     string        `json:"sender_name"`
	Content        string        `json:"content"`
	Direction      string        `json:"direction"`
	Date           time.Time     `json:"date"`
	Seen           bool          `json:"seen"`
	Status         string        `json:"status,omitempty"`
	DeliveryStatus string        `json:"delivery_status,omitempty"`
	Files          []MessageFile `json:"files,omitempty"`
	ReplyPreview   *ReplyPreview `json:"reply_preview,omitempty"`
}

// MessageFile is attachment metadata joined onto a message.
type MessageFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// ReplyPreview embeds a truncated view of the message being replied to,
// resolved through message_id correlation.
type ReplyPreview struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderName string `json:"sender_name"`
}
