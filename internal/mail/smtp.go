// Package mail is the email transport collaborator. It wraps an SMTP client
// and carries the reply-threading headers (Message-ID, In-Reply-To) the
// conversation engine depends on; the provider message id is generated by
// the caller before persistence so stored record and outbound mail agree.
package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

// Outgoing is one email ready for dispatch. MessageID must already be set;
// InReplyTo is optional and names the message id being answered.
type Outgoing struct {
	FromName  string
	From      string
	To        []string
	Subject   string
	TextBody  string
	HTMLBody  string
	MessageID string
	InReplyTo string
}

// Sender dispatches one email.
type Sender interface {
	Send(ctx context.Context, m Outgoing) error
}

// NewMessageID mints a provider-level message id in the standard
// "<unique@domain>" form.
func NewMessageID(domain string) string {
	return "<" + uuid.NewString() + "@" + domain + ">"
}

// SMTPSender sends through a single SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPSender builds a sender for the given relay. Empty username disables
// authentication (local relays in development).
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password}
}

// Send composes and dispatches one email over SMTP.
func (s *SMTPSender) Send(ctx context.Context, m Outgoing) error {
	if len(m.To) == 0 {
		return errors.New("mail: no recipients")
	}
	if strings.TrimSpace(m.MessageID) == "" {
		return errors.New("mail: missing message id")
	}

	msg := gomail.NewMsg()
	if m.FromName != "" {
		if err := msg.FromFormat(m.FromName, m.From); err != nil {
			return err
		}
	} else if err := msg.From(m.From); err != nil {
		return err
	}
	if err := msg.To(m.To...); err != nil {
		return err
	}
	msg.Subject(m.Subject)
	msg.SetMessageIDWithValue(strings.Trim(m.MessageID, "<>"))
	if m.InReplyTo != "" {
		msg.SetGenHeader(gomail.HeaderInReplyTo, m.InReplyTo)
	}
	msg.SetBodyString(gomail.TypeTextPlain, m.TextBody)
	if m.HTMLBody != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, m.HTMLBody)
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}
	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
