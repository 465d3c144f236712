package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	donation "donorhub/internal/donation/models"
	"donorhub/internal/donation/service"
	"donorhub/internal/platform/middleware"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// HeaderReplayed marks a response served from an earlier request with the
// same Idempotency-Key.
const HeaderReplayed = "Idempotent-Replayed"

// Service is the donation surface the handler needs.
type Service interface {
	CreateDonation(ctx context.Context, actor domain.Actor, causeID domain.CauseID, contribution domain.Contribution, idempotencyKey string) (*service.CreateResult, error)
	TransitionDonation(ctx context.Context, actor domain.Actor, id domain.DonationID, target donation.Status, in service.TransitionInput) (*donation.Donation, error)
	GetDonation(ctx context.Context, actor domain.Actor, id domain.DonationID) (*donation.Donation, error)
	GetReceipt(ctx context.Context, actor domain.Actor, id domain.DonationID) (donation.ReceiptRefs, error)
	ListDonations(ctx context.Context, actor domain.Actor, filter service.ListFilter) ([]*donation.Donation, error)
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
		r.With(middleware.RequireRole(domain.RoleDonor), middleware.IdempotencyKey).
			Post("/donations", h.handleCreate)
		r.Get("/donations", h.handleList)
		r.Get("/donations/{id}", h.handleGet)
		r.Post("/donations/{id}/transitions", h.handleTransition)
		r.Get("/donations/{id}/receipt", h.handleReceipt)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateDonationRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.CreateDonation(ctx, actorFrom(ctx), req.parsedCauseID, req.parsedContribution, requestcontext.IdempotencyKey(ctx))
	if err != nil {
		h.writeError(w, r, "failed to create donation", err)
		return
	}
	if res.Replayed {
		w.Header().Set(HeaderReplayed, "true")
		httputil.WriteJSON(w, http.StatusOK, res.Donation)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res.Donation)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.GetDonation(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, "failed to load donation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donations, err := h.service.ListDonations(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		h.writeError(w, r, "failed to list donations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"donations": donations})
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	d, err := h.service.TransitionDonation(ctx, actorFrom(ctx), id, req.parsedStatus, service.TransitionInput{
		ExpectedVersion: req.ExpectedVersion,
		Evidence:        req.Evidence(),
	})
	if err != nil {
		h.writeError(w, r, "failed to transition donation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseDonationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	refs, err := h.service.GetReceipt(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, "failed to load receipt", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refs)
}

func parseListFilter(r *http.Request) (service.ListFilter, error) {
	q := r.URL.Query()
	var filter service.ListFilter
	if raw := q.Get("cause_id"); raw != "" {
		id, err := domain.ParseCauseID(raw)
		if err != nil {
			return filter, err
		}
		filter.CauseID = &id
	}
	for _, raw := range q["status"] {
		status, err := donation.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for name, dst := range map[string]*time.Time{"created_from": &filter.CreatedFrom, "created_to": &filter.CreatedTo} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC 3339 timestamp")
		}
		*dst = t
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
