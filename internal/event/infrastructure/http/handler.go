package http

import (
	"log/slog"
	"net/http"

	"github.com/dmehra2102/Facility-Booking-System/internal/event/application"
	"github.com/dmehra2102/Facility-Booking-System/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequesterHeader carries the id of the user asking to change or delete an event.
const RequesterHeader = "X-User-Id"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("event-http"),
	}
}

type eventReq struct {
	OrganizerID       string `json:"organizerId"`
	Name              string `json:"eventName"`
	Type              string `json:"eventType"`
	BookingID         string `json:"bookingId"`
	ExpectedAttendees int    `json:"expectedAttendees"`
}

func (req eventReq) toRequest() application.Request {
	return application.Request{
		OrganizerID:       req.OrganizerID,
		Name:              req.Name,
		Type:              req.Type,
		BookingID:         req.BookingID,
		ExpectedAttendees: req.ExpectedAttendees,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", httpx.Healthz)
	r.Route("/api/events", func(r chi.Router) {
		r.Post("/", h.createEvent)
		r.Get("/", h.listEvents)
		r.Get("/{id}", h.getEvent)
		r.Put("/{id}", h.updateEvent)
		r.Delete("/{id}", h.deleteEvent)
	})
	return r
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateEvent")
	defer span.End()

	var req eventReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.String("booking.id", req.BookingID), attribute.Int("event.expected_attendees", req.ExpectedAttendees))

	e, err := h.service.CreateEvent(ctx, req.toRequest(), httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListEvents(r.Context())
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateEvent")
	defer span.End()

	var req eventReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	e, err := h.service.UpdateEvent(ctx, chi.URLParam(r, "id"), r.Header.Get(RequesterHeader), req.toRequest(), httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteEvent(r.Context(), chi.URLParam(r, "id"), r.Header.Get(RequesterHeader), httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
