// Contact HTTP handlers.
//
// Exposes the contact hygiene surface:
//   - GET /contacts/{id}  (contact with phone and email rows)
//   - PUT /contacts/{id}  (upsert with normalization and carrier validation)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crmsuite/go-messaging-backend/internal/domain"
	"github.com/crmsuite/go-messaging-backend/internal/repo"
)

// ContactService defines contact persistence with hygiene applied.
type ContactService interface {
	// Save normalizes, deduplicates, and persists a contact, then validates
	// new phone rows against the carrier database.
	Save(ctx context.Context, c *domain.Contact) error
	// Get returns a contact with its phone and email rows preloaded.
	Get(ctx context.Context, id string) (*domain.Contact, error)
}

// ContactHandlers groups the contact endpoints.
type ContactHandlers struct {
	svc ContactService
}

// NewContactHandlers constructs ContactHandlers bound to the given service.
func NewContactHandlers(svc ContactService) *ContactHandlers {
	return &ContactHandlers{svc: svc}
}

// ContactPhoneInput is one phone row of a contact save request.
type ContactPhoneInput struct {
	Phone             string `json:"phone" binding:"required"`
	IsPrimaryPhone    bool   `json:"is_primary_phone"`
	IsPrimaryMobileNo bool   `json:"is_primary_mobile_no"`
}

// ContactEmailInput is one email row of a contact save request.
type ContactEmailInput struct {
	EmailID   string `json:"email_id" binding:"required"`
	IsPrimary bool   `json:"is_primary"`
}

// SaveContactRequest is the PUT /contacts/{id} payload.
type SaveContactRequest struct {
	FullName string              `json:"full_name" binding:"required"`
	Image    string              `json:"image"`
	User     string              `json:"user"`
	Phones   []ContactPhoneInput `json:"phones"`
	Emails   []ContactEmailInput `json:"emails"`
}

// GetContact godoc
// @ID          getContact
// @Summary     Get a contact
// @Description Returns the contact with its phone and email rows.
// @Tags        Contacts
// @Produce     json
//
// @Param       id  path  string  true  "Contact id"
//
// @Success     200  {object} domain.Contact
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts/{id} [get]
func (h *ContactHandlers) GetContact(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	contact, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load contact")
		return
	}
	ok(c, http.StatusOK, contact)
}

// SaveContact godoc
// @ID          saveContact
// @Summary     Create or update a contact
// @Description Upserts the contact under the given id. Phone numbers are normalized to E.164, rows are deduplicated, a primary is elected when none is marked, and new phone rows are validated against the carrier database.
// @Tags        Contacts
// @Accept      json
// @Produce     json
//
// @Param       id      path  string                       true "Contact id"
// @Param       payload body  handlers.SaveContactRequest  true "Contact"
//
// @Success     200  {object} domain.Contact
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts/{id} [put]
func (h *ContactHandlers) SaveContact(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact id required")
		return
	}
	var req SaveContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	contact := &domain.Contact{
		ID:       id,
		FullName: strings.TrimSpace(req.FullName),
		Image:    strings.TrimSpace(req.Image),
		User:     strings.TrimSpace(req.User),
	}
	for _, p := range req.Phones {
		contact.Phones = append(contact.Phones, domain.ContactPhone{
			Phone:             p.Phone,
			IsPrimaryPhone:    p.IsPrimaryPhone,
			IsPrimaryMobileNo: p.IsPrimaryMobileNo,
		})
	}
	for _, e := range req.Emails {
		contact.Emails = append(contact.Emails, domain.ContactEmail{
			EmailID:   e.EmailID,
			IsPrimary: e.IsPrimary,
		})
	}

	// A save never clears an earlier STOP opt-out.
	if existing, err := h.svc.Get(c.Request.Context(), id); err == nil && existing != nil {
		contact.Unsubscribed = existing.Unsubscribed
		contact.CreatedAt = existing.CreatedAt
	}

	if err := h.svc.Save(c.Request.Context(), contact); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save contact")
		return
	}
	ok(c, http.StatusOK, contact)
}
