package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	twclient "github.com/twilio/twilio-go/client"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/http/middleware"
	"github.com/crmsuite/go-messaging-backend/internal/services"
)

// InboundService records one provider-delivered SMS.
type InboundService interface {
	ReceiveSMS(ctx context.Context, in services.InboundSMS) (*domain.Communication, error)
}

// SignatureValidator checks a webhook request signature against the shared
// provider secret. Satisfied by twilio-go's client.RequestValidator.
type SignatureValidator interface {
	Validate(url string, params map[string]string, signature string) bool
}

// WebhookHandlers receives provider callbacks. Requests are authenticated by
// signature before anything is persisted.
type WebhookHandlers struct {
	inbound   InboundService
	validator SignatureValidator
	url       string // public URL the provider signs against
}

// NewWebhookHandlers builds handlers validating signatures with the Twilio
// auth token. webhookURL is the externally visible URL of the endpoint; the
// provider includes it in the signed payload.
func NewWebhookHandlers(inbound InboundService, authToken, webhookURL string) *WebhookHandlers {
	v := twclient.NewRequestValidator(authToken)
	return &WebhookHandlers{inbound: inbound, validator: &v, url: webhookURL}
}

// NewWebhookHandlersWithValidator is like NewWebhookHandlers but with a
// caller-supplied validator. Tests use it to bypass real signing.
func NewWebhookHandlersWithValidator(inbound InboundService, v SignatureValidator, webhookURL string) *WebhookHandlers {
	return &WebhookHandlers{inbound: inbound, validator: v, url: webhookURL}
}

// TwilioSMS godoc
// @ID          twilioSMSWebhook
// @Summary     Twilio inbound SMS callback
// @Description Validates the X-Twilio-Signature header, then records the message. Invalid signatures are rejected before any write. Replies with an empty 204 so the provider sends no auto-response.
// @Tags        Webhooks
// @Accept      x-www-form-urlencoded
//
// @Param       X-Twilio-Signature  header    string  true  "Request signature"
// @Param       From                formData  string  true  "Sender number (E.164)"
// @Param       To                  formData  string  false "Receiving number"
// @Param       Body                formData  string  false "Message text"
// @Param       MessageSid          formData  string  false "Provider message id"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Missing sender"
// @Failure     403  {object} handlers.ErrorResponse "Bad signature"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /webhooks/twilio/sms [post]
func (h *WebhookHandlers) TwilioSMS(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form body")
		return
	}

	params := make(map[string]string, len(c.Request.PostForm))
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	sig := c.GetHeader("X-Twilio-Signature")
	if !h.validator.Validate(h.url, params, sig) {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Str("remote", c.ClientIP()).Msg("twilio webhook signature rejected")
		fail(c, http.StatusForbidden, ErrCodeForbidden, "invalid signature")
		return
	}

	in := services.InboundSMS{
		From:      c.PostForm("From"),
		To:        c.PostForm("To"),
		Body:      c.PostForm("Body"),
		MessageID: c.PostForm("MessageSid"),
	}
	if _, err := h.inbound.ReceiveSMS(c.Request.Context(), in); err != nil {
		if err == services.ErrInvalidRoomID {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing sender number")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// Empty response keeps Twilio from sending a TwiML auto-reply.
	noContent(c)
}
