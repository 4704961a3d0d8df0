package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"feedlink/internal/donee/models"
	"feedlink/internal/donee/service"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/httputil"
	request "feedlink/pkg/platform/middleware/request"
)

// Default radii of the two proximity routes.
const (
	DefaultNearRadiusMeters   = 5000
	DefaultNearbyRadiusMeters = 10000
)

// Service defines the donee operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, r models.Registration) (*models.Donee, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Donee, error)
	List(ctx context.Context, req service.ListRequest) ([]*models.Donee, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Donee, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Donee, error)
	FindNearby(ctx context.Context, longitude, latitude, maxDistanceMeters float64, limit int) ([]models.NearbyDonee, error)
}

// Handler serves public donee routes and the admin verification routes.
type Handler struct {
	service    Service
	logger     *slog.Logger
	nearRadius float64
}

// New creates a donee handler. nearRadius is the default of the near route;
// zero keeps DefaultNearRadiusMeters.
func New(svc Service, logger *slog.Logger, nearRadius float64) *Handler {
	if nearRadius <= 0 {
		nearRadius = DefaultNearRadiusMeters
	}
	return &Handler{service: svc, logger: logger, nearRadius: nearRadius}
}

// RegisterPublic mounts the unauthenticated donee routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/api/donees/near", h.HandleNear)
	r.Get("/api/donees/nearby/{lng}/{lat}", h.HandleNearby)
	r.Post("/api/donees/register", h.HandleRegister)
	r.Get("/api/donees/{id}", h.HandleGet)
}

// RegisterAdmin mounts the routes behind admin basic auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/donees", h.HandleList)
	r.Patch("/api/admin/donees/{id}/status", h.HandleUpdateStatus)
	r.Patch("/api/admin/donees/{id}/reject", h.HandleReject)
}

type registerRequest struct {
	Name                string                `json:"name"`
	Email               string                `json:"email"`
	Phone               string                `json:"phone"`
	OrganizationType    string                `json:"organizationType"`
	OrganizationName    string                `json:"organizationName"`
	Description         string                `json:"description"`
	Address             string                `json:"address"`
	AveragePeopleServed int                   `json:"averagePeopleServed"`
	OperatingHours      models.OperatingHours `json:"operatingHours"`
	SpecialRequirements []string              `json:"specialRequirements"`
	RegistrationNumber  string                `json:"registrationNumber"`
	Location            *models.Location      `json:"location"`
}

func (r *registerRequest) toRegistration() (models.Registration, error) {
	if r.Location == nil {
		return models.Registration{}, dErrors.New(dErrors.CodeBadRequest, "location is required")
	}
	return models.Registration{
		Name:                r.Name,
		Email:               r.Email,
		Phone:               r.Phone,
		OrganizationType:    r.OrganizationType,
		OrganizationName:    r.OrganizationName,
		Description:         r.Description,
		Address:             r.Address,
		AveragePeopleServed: r.AveragePeopleServed,
		OperatingHours:      r.OperatingHours,
		SpecialRequirements: r.SpecialRequirements,
		RegistrationNumber:  r.RegistrationNumber,
		Location:            *r.Location,
	}, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type nearbyResponse struct {
	Donees []models.NearbyDonee `json:"donees"`
	Count  int                  `json:"count"`
}

type listResponse struct {
	Donees []*models.Donee `json:"donees"`
	Count  int             `json:"count"`
}

// HandleNear serves /api/donees/near?lng=&lat=&dist=&limit=.
func (h *Handler) HandleNear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lng, err := parseCoordinate(q.Get("lng"), "lng")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lat, err := parseCoordinate(q.Get("lat"), "lat")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dist, err := parseOptionalFloat(q.Get("dist"), "dist", h.nearRadius)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseOptionalInt(q.Get("limit"), "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeNearby(w, r, lng, lat, dist, limit)
}

// HandleNearby serves /api/donees/nearby/{lng}/{lat}?maxDistance=.
func (h *Handler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	lng, err := parseCoordinate(chi.URLParam(r, "lng"), "lng")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lat, err := parseCoordinate(chi.URLParam(r, "lat"), "lat")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dist, err := parseOptionalFloat(r.URL.Query().Get("maxDistance"), "maxDistance", DefaultNearbyRadiusMeters)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeNearby(w, r, lng, lat, dist, 0)
}

func (h *Handler) writeNearby(w http.ResponseWriter, r *http.Request, lng, lat, dist float64, limit int) {
	ctx := r.Context()
	found, err := h.service.FindNearby(ctx, lng, lat, dist, limit)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to search donees", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nearbyResponse{Donees: found, Count: len(found)})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := httputil.DecodeJSON[registerRequest](r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid donee registration",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	reg, err := body.toRegistration()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Register(ctx, reg)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register donee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load donee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// HandleList serves /api/admin/donees?status=&limit=&skip=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit, err := parseOptionalInt(q.Get("limit"), "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	skip, err := parseOptionalInt(q.Get("skip"), "skip")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.List(ctx, service.ListRequest{Status: q.Get("status"), Limit: limit, Skip: skip})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list donees", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Donees: list, Count: len(list)})
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	body, err := httputil.DecodeJSON[statusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.UpdateStatus(ctx, id, body.Status)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update donee status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	body, err := httputil.DecodeJSON[rejectRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Reject(ctx, id, body.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to reject donee", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
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

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "donee not found"))
		return uuid.Nil, false
	}
	return id, true
}

func parseCoordinate(raw, name string) (float64, error) {
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidQuery, name+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidQuery, name+" must be a number")
	}
	return v, nil
}

func parseOptionalFloat(raw, name string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidQuery, name+" must be a number")
	}
	return v, nil
}

func parseOptionalInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidQuery, name+" must be an integer")
	}
	return v, nil
}
