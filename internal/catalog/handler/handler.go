package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/catalog/service"
	"donorhub/internal/platform/middleware"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// Service is the catalog surface the handler needs.
type Service interface {
	CreateCause(ctx context.Context, actor domain.Actor, details catalog.CauseDetails) (*catalog.Cause, error)
	GetCause(ctx context.Context, actor domain.Actor, id domain.CauseID) (*catalog.Cause, error)
	UpdateCause(ctx context.Context, actor domain.Actor, id domain.CauseID, details catalog.CauseDetails) (*catalog.Cause, error)
	DeactivateCause(ctx context.Context, actor domain.Actor, id domain.CauseID) (*catalog.Cause, error)
	DeleteCause(ctx context.Context, actor domain.Actor, id domain.CauseID) error
	ListOrganizationCauses(ctx context.Context, actor domain.Actor) ([]*catalog.Cause, error)
	ListVisibleCauses(ctx context.Context, filter service.VisibleFilter) ([]*catalog.Cause, error)
	IsCauseVisible(ctx context.Context, id domain.CauseID) (bool, error)

	CreateCampaign(ctx context.Context, actor domain.Actor, details catalog.CampaignDetails) (*catalog.Campaign, error)
	GetCampaign(ctx context.Context, id domain.CampaignID) (*catalog.Campaign, error)
	ListCampaigns(ctx context.Context, actor domain.Actor, statuses []catalog.CampaignStatus) ([]*catalog.Campaign, error)
	UpdateCampaignWindow(ctx context.Context, actor domain.Actor, id domain.CampaignID, start, end time.Time) (*catalog.Campaign, error)
	SetCampaignStatus(ctx context.Context, actor domain.Actor, id domain.CampaignID, target catalog.CampaignStatus) (*catalog.Campaign, error)

	Associate(ctx context.Context, actor domain.Actor, causeID domain.CauseID, campaignID domain.CampaignID) (*catalog.Campaign, error)
	Dissociate(ctx context.Context, actor domain.Actor, causeID domain.CauseID, campaignID domain.CampaignID) (*catalog.Campaign, error)
}

type Handler struct {
	service Service
	auth    middleware.ActorValidator
	logger  *slog.Logger
}

func New(service Service, auth middleware.ActorValidator, logger *slog.Logger) *Handler {
	return &Handler{service: service, auth: auth, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.auth, h.logger))

		r.Get("/causes", h.handleListVisibleCauses)
		r.Get("/causes/{id}", h.handleGetCause)
		r.Get("/causes/{id}/visibility", h.handleCauseVisibility)
		r.Get("/campaigns/{id}", h.handleGetCampaign)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleOrganization))
			r.Post("/causes", h.handleCreateCause)
			r.Patch("/causes/{id}", h.handleUpdateCause)
			r.Post("/causes/{id}/deactivate", h.handleDeactivateCause)
			r.Delete("/causes/{id}", h.handleDeleteCause)
			r.Get("/org/causes", h.handleListOrganizationCauses)

			r.Post("/campaigns", h.handleCreateCampaign)
			r.Get("/campaigns", h.handleListCampaigns)
			r.Patch("/campaigns/{id}/window", h.handleUpdateWindow)
			r.Post("/campaigns/{id}/status", h.handleSetStatus)
			r.Put("/campaigns/{id}/causes/{causeId}", h.handleAssociate)
			r.Delete("/campaigns/{id}/causes/{causeId}", h.handleDissociate)
		})
	})
}

func (h *Handler) handleCreateCause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CauseRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	cause, err := h.service.CreateCause(ctx, actorFrom(ctx), req.Details())
	if err != nil {
		h.writeError(w, r, "failed to create cause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cause)
}

func (h *Handler) handleGetCause(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCauseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cause, err := h.service.GetCause(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, "failed to load cause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cause)
}

func (h *Handler) handleUpdateCause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCauseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CauseRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	cause, err := h.service.UpdateCause(ctx, actorFrom(ctx), id, req.Details())
	if err != nil {
		h.writeError(w, r, "failed to update cause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cause)
}

func (h *Handler) handleDeactivateCause(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCauseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cause, err := h.service.DeactivateCause(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, "failed to deactivate cause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cause)
}

func (h *Handler) handleDeleteCause(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCauseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteCause(r.Context(), actorFrom(r.Context()), id); err != nil {
		h.writeError(w, r, "failed to delete cause", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListOrganizationCauses(w http.ResponseWriter, r *http.Request) {
	causes, err := h.service.ListOrganizationCauses(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, "failed to list causes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"causes": causes})
}

func (h *Handler) handleListVisibleCauses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseVisibleFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	causes, err := h.service.ListVisibleCauses(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "failed to list causes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"causes": causes})
}

func (h *Handler) handleCauseVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCauseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	visible, err := h.service.IsCauseVisible(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "failed to resolve visibility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cause_id": id, "visible": visible})
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CampaignRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	campaign, err := h.service.CreateCampaign(ctx, actorFrom(ctx), req.Details())
	if err != nil {
		h.writeError(w, r, "failed to create campaign", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, campaign)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	campaign, err := h.service.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "failed to load campaign", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	var statuses []catalog.CampaignStatus
	for _, raw := range r.URL.Query()["status"] {
		status, err := catalog.ParseCampaignStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		statuses = append(statuses, status)
	}
	campaigns, err := h.service.ListCampaigns(r.Context(), actorFrom(r.Context()), statuses)
	if err != nil {
		h.writeError(w, r, "failed to list campaigns", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (h *Handler) handleUpdateWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[WindowRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	campaign, err := h.service.UpdateCampaignWindow(ctx, actorFrom(ctx), id, req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, r, "failed to reschedule campaign", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[StatusRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	campaign, err := h.service.SetCampaignStatus(ctx, actorFrom(ctx), id, req.parsedStatus)
	if err != nil {
		h.writeError(w, r, "failed to change campaign status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func (h *Handler) handleAssociate(w http.ResponseWriter, r *http.Request) {
	causeID, campaignID, err := associationParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	campaign, err := h.service.Associate(r.Context(), actorFrom(r.Context()), causeID, campaignID)
	if err != nil {
		h.writeError(w, r, "failed to associate cause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func (h *Handler) handleDissociate(w http.ResponseWriter, r *http.Request) {
	causeID, campaignID, err := associationParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	campaign, err := h.service.Dissociate(r.Context(), actorFrom(r.Context()), causeID, campaignID)
	if err != nil {
		h.writeError(w, r, "failed to dissociate cause", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, campaign)
}

func associationParams(r *http.Request) (domain.CauseID, domain.CampaignID, error) {
	campaignID, err := domain.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		return domain.CauseID{}, domain.CampaignID{}, err
	}
	causeID, err := domain.ParseCauseID(chi.URLParam(r, "causeId"))
	if err != nil {
		return domain.CauseID{}, domain.CampaignID{}, err
	}
	return causeID, campaignID, nil
}

func parseVisibleFilter(r *http.Request) (service.VisibleFilter, error) {
	q := r.URL.Query()
	filter := service.VisibleFilter{
		Tag:   q.Get("tag"),
		Query: q.Get("q"),
	}
	if raw := q.Get("type"); raw != "" {
		t, err := domain.ParseContributionType(raw)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	if raw := q.Get("organization_id"); raw != "" {
		id, err := domain.ParseOrganizationID(raw)
		if err != nil {
			return filter, err
		}
		filter.OrganizationID = &id
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
		}
		*dst = n
	}
	return filter, nil
}

// actorFrom returns the actor set by RequireAuth. Routes are only reachable
// behind it, so a missing actor is a zero value the service rejects.
func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := requestcontext.Actor(ctx)
	return actor
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
