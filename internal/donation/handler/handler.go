package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"feedlink/internal/donation/models"
	"feedlink/internal/donation/service"
	"feedlink/internal/matching"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/httputil"
	request "feedlink/pkg/platform/middleware/request"
	"feedlink/pkg/requestcontext"
)

// Service is what the donation routes need from the matching and ledger layers.
type Service interface {
	RequestDonation(ctx context.Context, req matching.DonationRequest) (*matching.Result, error)
	ConfirmDonation(ctx context.Context, donationID uuid.UUID, token string) (*models.Donation, bool, error)
	UpdateStatus(ctx context.Context, req service.SetStatusRequest) (*models.Donation, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*models.Donation, error)
	ResendNotification(ctx context.Context, donationID uuid.UUID) (*models.Donation, error)
}

// Handler serves donor donation routes and the donee confirmation link.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterDonor mounts the routes that require an authenticated donor.
func (h *Handler) RegisterDonor(r chi.Router) {
	r.Post("/api/donations/notify/{doneeId}", h.HandleNotify)
	r.Patch("/api/donations/{id}/status", h.HandleUpdateStatus)
	r.Get("/api/donations/mine", h.HandleListMine)
}

// RegisterPublic mounts the confirmation link followed from the donee mail.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/donations/{id}/confirm", h.HandleConfirm)
}

// RegisterAdmin mounts the routes behind admin basic auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/api/admin/donations/{id}/resend", h.HandleResend)
}

type notifyRequest struct {
	Contact         string     `json:"contact"`
	FoodType        string     `json:"foodType"`
	Quantity        string     `json:"quantity"`
	EstimatedPeople int        `json:"estimatedPeople"`
	ScheduledTime   *time.Time `json:"scheduledTime"`
	Notes           string     `json:"notes"`
}

type notifyResponse struct {
	DonationID       uuid.UUID `json:"donationId"`
	Status           string    `json:"status"`
	Notified         bool      `json:"notified"`
	ErrorDescription string    `json:"error_description,omitempty"`
}

type statusRequest struct {
	Status   string  `json:"status"`
	Rating   *int    `json:"rating"`
	Feedback *string `json:"feedback"`
}

type listResponse struct {
	Donations []*models.Donation `json:"donations"`
	Count     int                `json:"count"`
}

// HandleNotify opens a donation and mails the donee. 201 when mailed, 202
// when the donation was saved but the mail failed.
func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	donorID, ok := h.donorID(w, r)
	if !ok {
		return
	}
	doneeID, err := uuid.Parse(chi.URLParam(r, "doneeId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid donee id"))
		return
	}
	body, err := httputil.DecodeJSON[notifyRequest](r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid notify request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.RequestDonation(ctx, matching.DonationRequest{
		DonorID: donorID,
		DoneeID: doneeID,
		Contact: body.Contact,
		Details: models.Details{
			FoodType:        body.FoodType,
			Quantity:        body.Quantity,
			EstimatedPeople: body.EstimatedPeople,
			ScheduledTime:   body.ScheduledTime,
			Notes:           body.Notes,
		},
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to request donation", err)
		return
	}

	resp := notifyResponse{
		DonationID: res.Donation.ID,
		Status:     res.Donation.Status.String(),
		Notified:   res.Notified,
	}
	if !res.Notified {
		if res.NotifyErr != nil {
			resp.ErrorDescription = dErrors.MessageOf(res.NotifyErr)
		}
		httputil.WriteJSON(w, http.StatusAccepted, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleConfirm applies the donee confirmation and renders a small page.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderConfirmError(w, dErrors.New(dErrors.CodeNotFound, "donation not found"))
		return
	}
	// a missing token is rejected by the ledger after the donation lookup
	d, newly, err := h.service.ConfirmDonation(ctx, id, r.URL.Query().Get("token"))
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to confirm donation",
				"request_id", request.GetRequestID(ctx),
				"donation_id", id,
				"error", err,
			)
		}
		renderConfirmError(w, err)
		return
	}
	renderConfirmed(w, d, !newly)
}

// HandleUpdateStatus lets the donor move their donation.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, ok := h.donorID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "donation not found"))
		return
	}
	body, err := httputil.DecodeJSON[statusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.UpdateStatus(ctx, service.SetStatusRequest{
		DonationID:  id,
		RequesterID: donorID,
		Status:      body.Status,
		Rating:      body.Rating,
		Feedback:    body.Feedback,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update donation status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// HandleListMine returns the donor's donations, newest first.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, ok := h.donorID(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListByDonor(ctx, donorID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list donations", err)
		return
	}
	if list == nil {
		list = []*models.Donation{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Donations: list, Count: len(list)})
}

// HandleResend mails the donee again for a pending donation.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "donation not found"))
		return
	}
	d, err := h.service.ResendNotification(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to resend donation notification", err)
		return
	}
	h.logger.InfoContext(ctx, "donation notification resent",
		"request_id", request.GetRequestID(ctx),
		"donation_id", d.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) donorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ctx := r.Context()
	raw := requestcontext.UserID(ctx)
	id, err := uuid.Parse(raw)
	if err != nil {
		// RequireAuth guarantees a non-empty id; an unparsable one means a bad token issuer.
		h.logger.WarnContext(ctx, "donor id missing or malformed",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
