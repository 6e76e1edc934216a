package domain

import "strings"

// Medium is the closed set of communication channel types. Behavior that
// varies per channel (identifier extraction, transport choice, display
// formatting) dispatches on this type instead of scattering string compares.
type Medium string

// Known media. Phone-based media thread on phone number; Email threads on
// counterparty address.
const (
	MediumEmail Medium = "Email"
	MediumSMS   Medium = "SMS"
	MediumPhone Medium = "Phone"
	MediumChat  Medium = "Chat"
	MediumOther Medium = "Other"
)

// Direction values for Communication.SentOrReceived.
const (
	DirectionSent     = "Sent"
	DirectionReceived = "Received"
)

// Status values for Communication.Status.
const (
	StatusOpen      = "Open"
	StatusReplied   = "Replied"
	StatusClosed    = "Closed"
	StatusLinked    = "Linked"
	StatusScheduled = "Scheduled"
	StatusDraft     = "Draft"
	StatusSent      = "Sent"
)

// DeliveryStatus values for Communication.DeliveryStatus.
const (
	DeliverySent    = "Sent"
	DeliveryError   = "Error"
	DeliveryBounced = "Bounced"
	DeliveryOpened  = "Opened"
	DeliveryRead    = "Read"
)

// CommunicationTypeDefault is the discriminator value for rows that
// participate in conversation grouping.
const CommunicationTypeDefault = "Communication"

// ParseMedium maps a wire string onto a known Medium, case-insensitively.
// Unknown values land on MediumOther rather than failing; the grouping
// engine treats them as opaque.
func ParseMedium(s string) Medium {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return MediumEmail
	case "sms":
		return MediumSMS
	case "phone":
		return MediumPhone
	case "chat":
		return MediumChat
	case "":
		return ""
	default:
		return MediumOther
	}
}

// PhoneBased reports whether the medium threads conversations on a phone
// number rather than an email address.
func (m Medium) PhoneBased() bool { return m == MediumSMS || m == MediumPhone }

// Valid reports whether m is one of the known media.
func (m Medium) Valid() bool {
	switch m {
	case MediumEmail, MediumSMS, MediumPhone, MediumChat, MediumOther:
		return true
	}
	return false
}
