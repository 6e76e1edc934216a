// Package domain defines the persistence models for communications, contacts,
// attachments, push subscriptions, and scheduled group messages. These types
// are mapped with GORM and form the core data layer of the messaging backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Communication is the atomic message record: a single inbound or outbound
// email, SMS, or call note. Conversation rooms are never persisted; they are
// recomputed from the communication log on every read.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CommunicationType: discriminator; only "Communication" rows participate
//     in room grouping (system/automated entries carry other values).
//   - Medium: channel type (Email | SMS | Phone | Chat | Other).
//   - SentOrReceived: direction ("Sent" or "Received").
//   - Sender / SenderFullName: originating address and display name. Sender
//     may be a shared mailbox; User is the account that actually acted.
//   - Recipients: comma-joined destination addresses.
//   - PhoneNo: counterparty number for phone-based media.
//   - Subject / Content / TextContent: subject line, HTML (or raw) body, and
//     the optional plain-text variant.
//   - CommunicationDate: orders the record within its thread.
//   - Seen: read marker, meaningful for Received rows only.
//   - Status: Open | Replied | Closed | Linked | Scheduled | ...
//   - DeliveryStatus: transport outcome (Sent | Error | Bounced | ...).
//   - MessageID / InReplyTo: provider-level ids; InReplyTo points at another
//     row's MessageID, never at a primary key.
//   - ReferenceDoctype / ReferenceName: optional link to a business record.
//   - HasAttachment: set when attachment rows exist for this record.
//   - User: platform account on whose behalf the record was created.
type Communication struct {
	ID                string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	CommunicationType string         `json:"communication_type" gorm:"type:varchar(32);not null;default:'Communication';index"`
	Medium            Medium         `json:"communication_medium" gorm:"column:communication_medium;type:varchar(16);not null;index:idx_comm_medium_date,priority:1"`
	SentOrReceived    string         `json:"sent_or_received"   gorm:"type:varchar(16);not null"`
	Sender            string         `json:"sender"             gorm:"type:varchar(255);index"`
	SenderFullName    string         `json:"sender_full_name"   gorm:"type:varchar(255)"`
	Recipients        string         `json:"recipients"         gorm:"type:text"`
	PhoneNo           string         `json:"phone_no"           gorm:"type:varchar(32);index"`
	Subject           string         `json:"subject"            gorm:"type:varchar(500)"`
	Content           string         `json:"content"            gorm:"type:text"`
	TextContent       string         `json:"text_content"       gorm:"type:text"`
	CommunicationDate time.Time      `json:"communication_date" gorm:"not null;index:idx_comm_medium_date,priority:2"`
	Seen              bool           `json:"seen"               gorm:"not null;default:false"`
	Status            string         `json:"status"             gorm:"type:varchar(16);not null;default:'Open'"`
	DeliveryStatus    string         `json:"delivery_status"    gorm:"type:varchar(16)"`
	MessageID         string         `json:"message_id"         gorm:"type:varchar(255);index"`
	InReplyTo         string         `json:"in_reply_to"        gorm:"type:varchar(255);index"`
	ReferenceDoctype  string         `json:"reference_doctype"  gorm:"type:varchar(64)"`
	ReferenceName     string         `json:"reference_name"     gorm:"type:varchar(255)"`
	HasAttachment     bool           `json:"has_attachment"     gorm:"not null;default:false"`
	User              string         `json:"user"               gorm:"type:varchar(255)"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-"                  gorm:"index"`
}

// TableName returns the database table name for Communication.
func (Communication) TableName() string { return "communications" }

// Attachment stores file metadata for a communication. The file bytes live
// elsewhere (object storage or disk); only the pointer is persisted here.
type Attachment struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	CommunicationID string         `json:"communication_id" gorm:"type:char(36);not null;index"`
	FileName        string         `json:"file_name"        gorm:"type:varchar(255);not null"`
	FileURL         string         `json:"file_url"         gorm:"type:varchar(1024);not null"`
	FileSize        int64          `json:"file_size"`
	MimeType        string         `json:"mime_type"        gorm:"type:varchar(128)"`
	IsPrivate       bool           `json:"is_private"       gorm:"not null;default:true"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`

	// Communication is the owning record. Attachments are cascade-deleted
	// with it.
	Communication Communication `json:"-" gorm:"foreignKey:CommunicationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string { return "attachments" }

// Contact is a person record used for display enrichment (name, avatar) and
// opt-out bookkeeping. Phones and emails hang off child tables so a contact
// can hold several of each.
type Contact struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	FullName     string         `json:"full_name"     gorm:"type:varchar(255);not null"`
	Image        string         `json:"image"         gorm:"type:varchar(1024)"`
	EmailID      string         `json:"email_id"      gorm:"type:varchar(255);index"`
	MobileNo     string         `json:"mobile_no"     gorm:"type:varchar(32);index"`
	User         string         `json:"user"          gorm:"type:varchar(255)"`
	Unsubscribed bool           `json:"unsubscribed"  gorm:"not null;default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`

	Phones []ContactPhone `json:"phones" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Emails []ContactEmail `json:"emails" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// ContactPhone is one phone number attached to a contact, with the carrier
// validation fields filled in lazily by the lookup collaborator.
type ContactPhone struct {
	ID                string         `json:"id"                  gorm:"type:char(36);primaryKey"`
	ContactID         string         `json:"contact_id"          gorm:"type:char(36);not null;index"`
	Phone             string         `json:"phone"               gorm:"type:varchar(32);not null;index"`
	IsPrimaryPhone    bool           `json:"is_primary_phone"    gorm:"not null;default:false"`
	IsPrimaryMobileNo bool           `json:"is_primary_mobile_no" gorm:"not null;default:false"`
	IsValidNumber     bool           `json:"is_valid_number"     gorm:"not null;default:false"`
	CarrierType       string         `json:"carrier_type"        gorm:"type:varchar(32)"` // mobile, landline, voip, or unknown
	ValidatedNumber   string         `json:"validated_number"    gorm:"type:varchar(32)"` // E.164 form reported by the lookup
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-"                   gorm:"index"`
}

// TableName returns the database table name for ContactPhone.
func (ContactPhone) TableName() string { return "contact_phones" }

// ContactEmail is one email address attached to a contact.
type ContactEmail struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ContactID string         `json:"contact_id" gorm:"type:char(36);not null;index"`
	EmailID   string         `json:"email_id"   gorm:"type:varchar(255);not null;index"`
	IsPrimary bool           `json:"is_primary" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ContactEmail.
func (ContactEmail) TableName() string { return "contact_emails" }

// PushSubscription is a browser push endpoint registered by a user. The
// endpoint is unique per user; re-registering the same endpoint updates the
// keys in place.
type PushSubscription struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"   gorm:"type:varchar(255);not null;index;uniqueIndex:ux_push_user_endpoint"`
	Endpoint  string         `json:"endpoint"  gorm:"type:varchar(1024);not null;uniqueIndex:ux_push_user_endpoint"`
	P256dhKey string         `json:"p256dh"    gorm:"type:varchar(255);not null"`
	AuthKey   string         `json:"auth"      gorm:"type:varchar(255);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for PushSubscription.
func (PushSubscription) TableName() string { return "push_subscriptions" }

// Setting is a single key/value row for operational state that must survive
// restarts (VAPID keys, for instance). Encrypted marks values that are stored
// AES-GCM sealed and must be opened before use.
type Setting struct {
	Key       string    `json:"key"       gorm:"type:varchar(128);primaryKey"`
	Value     string    `json:"value"     gorm:"type:text;not null"`
	Encrypted bool      `json:"encrypted" gorm:"not null;default:false"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }

// MessagingGroup is a named broadcast list of contacts.
type MessagingGroup struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	Title     string         `json:"title"     gorm:"type:varchar(255);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`

	Members []MessagingGroupMember `json:"members" gorm:"foreignKey:GroupID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for MessagingGroup.
func (MessagingGroup) TableName() string { return "messaging_groups" }

// MessagingGroupMember links one contact into a group.
type MessagingGroupMember struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	GroupID   string         `json:"group_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_group_contact"`
	ContactID string         `json:"contact_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_group_contact"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for MessagingGroupMember.
func (MessagingGroupMember) TableName() string { return "messaging_group_members" }

// GroupTextMessage is a bulk SMS addressed to one or more messaging groups,
// either sent immediately or scheduled for a delivery time. The Scheduled
// status is the only double-send guard; see services.GroupMessageService.
type GroupTextMessage struct {
	ID               string         `json:"id"                gorm:"type:char(36);primaryKey"`
	Message          string         `json:"message"           gorm:"type:text;not null"`
	Status           string         `json:"status"            gorm:"type:varchar(16);not null;default:'Draft';index"`
	Scheduled        bool           `json:"scheduled"         gorm:"not null;default:false"`
	DeliveryDatetime *time.Time     `json:"delivery_datetime" gorm:"index"`
	CreatedBy        string         `json:"created_by"        gorm:"type:varchar(255)"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"                 gorm:"index"`

	Targets []GroupTextMessageTarget `json:"targets" gorm:"foreignKey:GroupMessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupTextMessage.
func (GroupTextMessage) TableName() string { return "group_text_messages" }

// GroupTextMessageTarget addresses one messaging group from a bulk SMS.
// Excluded targets subtract their members from the recipient set.
type GroupTextMessageTarget struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	GroupMessageID string         `json:"group_message_id" gorm:"type:char(36);not null;index"`
	GroupID        string         `json:"group_id"         gorm:"type:char(36);not null;index"`
	Excluded       bool           `json:"excluded"         gorm:"not null;default:false"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for GroupTextMessageTarget.
func (GroupTextMessageTarget) TableName() string { return "group_text_message_targets" }
