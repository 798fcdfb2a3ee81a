// Package handler wires the directory endpoints to the resolution service.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bindirectory/internal/directory/models"
	dErrors "bindirectory/pkg/domain-errors"
	"bindirectory/pkg/platform/httputil"
	"bindirectory/pkg/requestcontext"
)

// Service defines the directory operations the transport exposes upward.
type Service interface {
	Register(ctx context.Context, inst *models.Institution) (*models.Institution, error)
	ListAll(ctx context.Context) ([]models.Institution, error)
	FindByBIC(ctx context.Context, bic string) (*models.Institution, error)
	AddRule(ctx context.Context, bic string, rule models.RoutingRule) (*models.Institution, error)
	ResolveByBIN(ctx context.Context, bin string) (*models.Institution, error)
	ReportFailure(ctx context.Context, bic string) error
	UpdateRestricted(ctx context.Context, bic string, newStatus, newURL *string) (*models.Institution, error)
}

// Handler maps HTTP requests onto the resolution service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a directory handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/institutions", h.HandleRegister)
		r.Get("/institutions", h.HandleList)
		r.Get("/institutions/{bic}", h.HandleGetByBIC)
		r.Post("/institutions/{bic}/rules", h.HandleAddRule)
		r.Post("/institutions/{bic}/report-failure", h.HandleReportFailure)
		r.Patch("/institutions/{bic}/operations", h.HandleUpdateOperations)
		r.Get("/lookup/{bin}", h.HandleLookup)

		// Legacy alias kept for the API gateway's older route map.
		r.Get("/network/banks", h.HandleList)
	})
}

// HandleRegister handles POST /api/v1/institutions.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[RegisterRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	inst, err := h.service.Register(ctx, req.ToModel())
	if err != nil {
		h.logError(ctx, "institution registration failed", err, "bic", req.BIC)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromInstitution(inst))
}

// HandleList handles GET /api/v1/institutions and the legacy alias.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logError(r.Context(), "directory listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstitutions(all))
}

// HandleGetByBIC handles GET /api/v1/institutions/{bic}. A gated-unavailable
// institution is indistinguishable from an unknown one here.
func (h *Handler) HandleGetByBIC(w http.ResponseWriter, r *http.Request) {
	bic := chi.URLParam(r, "bic")

	inst, err := h.service.FindByBIC(r.Context(), bic)
	if err != nil {
		h.logError(r.Context(), "institution read failed", err, "bic", bic)
		httputil.WriteError(w, err)
		return
	}
	if inst == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "institution not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstitution(inst))
}

// HandleAddRule handles POST /api/v1/institutions/{bic}/rules.
func (h *Handler) HandleAddRule(w http.ResponseWriter, r *http.Request) {
	bic := chi.URLParam(r, "bic")

	req, err := httputil.Decode[RuleRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	inst, err := h.service.AddRule(r.Context(), bic, req.ToModel())
	if err != nil {
		h.logError(r.Context(), "rule addition failed", err, "bic", bic, "bin", req.BINPrefix)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstitution(inst))
}

// HandleLookup handles GET /api/v1/lookup/{bin}, the switch's core routing
// question. A resolution whose snapshot carries an open breaker (a stale
// cache hit) answers 503 with the institution body so the switch can tell
// "known but unreachable" from "unknown".
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	bin := chi.URLParam(r, "bin")

	inst, err := h.service.ResolveByBIN(r.Context(), bin)
	if err != nil {
		h.logError(r.Context(), "BIN resolution failed", err, "bin", bin)
		httputil.WriteError(w, err)
		return
	}
	if inst == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no institution owns this BIN"))
		return
	}
	if inst.Breaker.Open {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, FromInstitution(inst))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstitution(inst))
}

// HandleReportFailure handles POST /api/v1/institutions/{bic}/report-failure.
// Always answers 200: the reporter doesn't act on the outcome.
func (h *Handler) HandleReportFailure(w http.ResponseWriter, r *http.Request) {
	bic := chi.URLParam(r, "bic")

	if err := h.service.ReportFailure(r.Context(), bic); err != nil {
		h.logError(r.Context(), "failure report failed", err, "bic", bic)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleUpdateOperations handles PATCH /api/v1/institutions/{bic}/operations
// with optional query parameters new_status and new_url.
func (h *Handler) HandleUpdateOperations(w http.ResponseWriter, r *http.Request) {
	bic := chi.URLParam(r, "bic")
	query := r.URL.Query()

	var newStatus, newURL *string
	if query.Has("new_status") {
		v := query.Get("new_status")
		newStatus = &v
	}
	if query.Has("new_url") {
		v := query.Get("new_url")
		newURL = &v
	}

	inst, err := h.service.UpdateRestricted(r.Context(), bic, newStatus, newURL)
	if err != nil {
		h.logError(r.Context(), "restricted update failed", err, "bic", bic)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstitution(inst))
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	h.logger.ErrorContext(ctx, msg, attrs...)
}
