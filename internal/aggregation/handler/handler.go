package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"donorhub/internal/aggregation/models"
	"donorhub/internal/platform/middleware"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// Service is the aggregation surface the handler needs.
type Service interface {
	GetCauseTotals(ctx context.Context, id domain.CauseID) (models.Totals, error)
	GetCampaignTotals(ctx context.Context, id domain.CampaignID) (models.Totals, error)
	MonthlyTrend(ctx context.Context, actor domain.Actor, scope models.Scope, monthsBack int) ([]models.TrendBucket, error)
	TypeBreakdown(ctx context.Context, actor domain.Actor, scope models.Scope) ([]models.TypeTotal, error)
	TopEntities(ctx context.Context, actor domain.Actor, scope models.Scope, entity models.Entity, metric models.Metric, limit int) ([]models.RankedEntity, error)
	Dashboard(ctx context.Context, actor domain.Actor, scope models.Scope, monthsBack int) (*models.Dashboard, error)
}

type Handler struct {
	service Service
	auth    middleware.ActorValidator
	logger  *slog.Logger
}

func New(service Service, auth middleware.ActorValidator, logger *slog.Logger) *Handler {
	return &Handler{service: service, auth: auth, logger: logger}
}

// Register mounts totals and analytics routes. All of them require a bearer
// token; analytics are further restricted to organizations by the service.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.auth, h.logger))
		r.Get("/causes/{id}/totals", h.handleCauseTotals)
		r.Get("/campaigns/{id}/totals", h.handleCampaignTotals)
		r.Get("/analytics/trend", h.handleTrend)
		r.Get("/analytics/breakdown", h.handleBreakdown)
		r.Get("/analytics/top", h.handleTop)
		r.Get("/analytics/dashboard", h.handleDashboard)
	})
}

func (h *Handler) handleCauseTotals(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCauseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	totals, err := h.service.GetCauseTotals(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "failed to load cause totals", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, totals)
}

func (h *Handler) handleCampaignTotals(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	totals, err := h.service.GetCampaignTotals(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "failed to load campaign totals", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, totals)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := h.prepare(w, r)
	if !ok {
		return
	}
	months, err := intParam(r, "months")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	trend, err := h.service.MonthlyTrend(r.Context(), actor, scope, months)
	if err != nil {
		h.writeError(w, r, "failed to load trend", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"buckets": trend})
}

func (h *Handler) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := h.prepare(w, r)
	if !ok {
		return
	}
	breakdown, err := h.service.TypeBreakdown(r.Context(), actor, scope)
	if err != nil {
		h.writeError(w, r, "failed to load breakdown", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"types": breakdown})
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := h.prepare(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	entity, err := models.ParseEntity(withDefault(q.Get("entity"), string(models.EntityCause)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	metric, err := models.ParseMetric(withDefault(q.Get("metric"), string(models.MetricTotal)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	top, err := h.service.TopEntities(r.Context(), actor, scope, entity, metric, limit)
	if err != nil {
		h.writeError(w, r, "failed to load ranking", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entities": top})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	actor, scope, ok := h.prepare(w, r)
	if !ok {
		return
	}
	months, err := intParam(r, "months")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dashboard, err := h.service.Dashboard(r.Context(), actor, scope, months)
	if err != nil {
		h.writeError(w, r, "failed to load dashboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (domain.Actor, models.Scope, bool) {
	actor, ok := requestcontext.Actor(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.Actor{}, models.Scope{}, false
	}
	scope, err := parseScope(r)
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Actor{}, models.Scope{}, false
	}
	return actor, scope, true
}

func parseScope(r *http.Request) (models.Scope, error) {
	var scope models.Scope
	q := r.URL.Query()
	if raw := q.Get("cause_id"); raw != "" {
		id, err := domain.ParseCauseID(raw)
		if err != nil {
			return scope, err
		}
		scope.CauseID = &id
	}
	if raw := q.Get("organization_id"); raw != "" {
		id, err := domain.ParseOrganizationID(raw)
		if err != nil {
			return scope, err
		}
		scope.OrganizationID = &id
	}
	if raw := q.Get("type"); raw != "" {
		t, err := domain.ParseContributionType(raw)
		if err != nil {
			return scope, err
		}
		scope.Type = &t
	}
	return scope, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be an integer")
	}
	return n, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
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
