package http

import (
	"log/slog"
	"net/http"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/application"
	"github.com/dmehra2102/Facility-Booking-System/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("approval-http"),
	}
}

type decisionReq struct {
	EventID    string `json:"eventId"`
	ApproverID string `json:"approverId"`
	Status     string `json:"status"`
	Comment    string `json:"comment"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", httpx.Healthz)
	r.Route("/api/approvals", func(r chi.Router) {
		r.Post("/", h.recordApproval)
		r.Get("/", h.listApprovals)
		r.Get("/event/{eventId}", h.listForEvent)
		r.Get("/{id}", h.getApproval)
		r.Put("/{id}", h.updateApproval)
		r.Delete("/{id}", h.deleteApproval)
	})
	return r
}

func (h *Handler) recordApproval(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RecordApproval")
	defer span.End()

	var req decisionReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	a, created, err := h.service.RecordApproval(ctx, application.Decision{
		EventID:        req.EventID,
		ApproverID:     req.ApproverID,
		Status:         req.Status,
		Comment:        req.Comment,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	}, httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, a)
}

func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListApprovals(r.Context())
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) listForEvent(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListApprovalsForEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) getApproval(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetApproval(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) updateApproval(w http.ResponseWriter, r *http.Request) {
	var req decisionReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	a, err := h.service.UpdateApproval(r.Context(), chi.URLParam(r, "id"), application.Decision{
		ApproverID: req.ApproverID,
		Status:     req.Status,
		Comment:    req.Comment,
	}, httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) deleteApproval(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteApproval(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
