// Package sms is the SMS transport collaborator. The send orchestrator and
// the scheduled bulk sender talk to the Sender interface; the Twilio-backed
// implementation lives here together with the carrier lookup used by contact
// phone validation.
package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	lookups "github.com/twilio/twilio-go/rest/lookups/v2"
)

// Sender dispatches one SMS and returns the provider message id (SID).
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// LookupResult is the carrier-validation outcome for one number. CarrierType
// is "mobile", "landline", "voip", or "unknown" when the lookup failed or
// reported nothing.
type LookupResult struct {
	Valid       bool
	E164        string
	CarrierType string
}

// Lookup validates a phone number against the carrier database. Failures are
// reported as errors; callers treat them as "unknown", never as fatal.
type Lookup interface {
	Validate(ctx context.Context, number string) (LookupResult, error)
}

// Client wraps the Twilio REST API behind the Sender and Lookup interfaces.
type Client struct {
	rest *twilio.RestClient
	from string
}

// NewClient builds a Twilio client sending from the given number.
func NewClient(accountSID, authToken, from string) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{rest: rest, from: from}
}

// Send dispatches one SMS. The Twilio SDK performs the HTTP call internally
// and does not accept a context; ctx is part of the interface for fakes and
// future transports.
func (c *Client) Send(_ context.Context, to, body string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", errors.New("sms: empty destination number")
	}
	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", errors.New("sms: provider returned no message sid")
	}
	return *resp.Sid, nil
}

// Validate runs a carrier lookup with line-type intelligence. A lookup error
// or an absent line type maps to CarrierType "unknown".
func (c *Client) Validate(_ context.Context, number string) (LookupResult, error) {
	params := &lookups.FetchPhoneNumberParams{}
	params.SetFields("line_type_intelligence")

	resp, err := c.rest.LookupsV2.FetchPhoneNumber(number, params)
	if err != nil {
		return LookupResult{CarrierType: "unknown"}, err
	}

	out := LookupResult{CarrierType: "unknown"}
	if resp.Valid != nil {
		out.Valid = *resp.Valid
	}
	if resp.PhoneNumber != nil {
		out.E164 = *resp.PhoneNumber
	}
	if resp.LineTypeIntelligence != nil {
		if lti, ok := (*resp.LineTypeIntelligence).(map[string]any); ok {
			if t, ok := lti["type"].(string); ok && t != "" {
				out.CarrierType = t
			}
		}
	}
	return out, nil
}
