package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/internal/booking/application"
	"github.com/dmehra2102/Facility-Booking-System/internal/booking/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
	"github.com/dmehra2102/Facility-Booking-System/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errBadTime = apperr.New(apperr.Validation, "INVALID_TIME", "times must be RFC 3339 or yyyy-MM-ddTHH:mm:ss")

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
	loc     *time.Location
}

type Option func(*Handler)

// WithLocation sets the zone for request times sent without an offset. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

func NewHandler(log *slog.Logger, service *application.Service, opts ...Option) *Handler {
	h := &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("booking-http"),
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type bookingReq struct {
	UserID    string `json:"userId"`
	RoomID    string `json:"roomId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Purpose   string `json:"purpose"`
}

func (req bookingReq) toRequest(loc *time.Location) (application.Request, error) {
	start, err := parseTime(req.StartTime, loc)
	if err != nil {
		return application.Request{}, err
	}
	end, err := parseTime(req.EndTime, loc)
	if err != nil {
		return application.Request{}, err
	}
	return application.Request{
		UserID:    req.UserID,
		RoomID:    req.RoomID,
		StartTime: start,
		EndTime:   end,
		Purpose:   req.Purpose,
	}, nil
}

// parseTime accepts an RFC 3339 timestamp or a wall-clock time without offset, read in loc. An empty
// value yields the zero time and is left to range validation.
func parseTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	// time.Parse also takes trailing fractional seconds here.
	t, err := time.ParseInLocation("2006-01-02T15:04:05", v, loc)
	if err != nil {
		return time.Time{}, errBadTime.WithCause(err)
	}
	return t, nil
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", httpx.Healthz)
	r.Route("/api/bookings", func(r chi.Router) {
		r.Post("/", h.createBooking)
		r.Get("/", h.listBookings)
		r.Get("/{id}", h.getBooking)
		r.Put("/{id}", h.updateBooking)
		r.Delete("/{id}", h.deleteBooking)
	})
	return r
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateBooking")
	defer span.End()

	var req bookingReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	span.SetAttributes(attribute.String("room.id", req.RoomID), attribute.String("user.id", req.UserID))

	in, err := req.toRequest(h.loc)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	b, err := h.service.CreateBooking(ctx, in, httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	f := domain.Filter{
		UserID: r.URL.Query().Get("userId"),
		RoomID: r.URL.Query().Get("roomId"),
	}
	out, err := h.service.ListBookings(r.Context(), f)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) updateBooking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateBooking")
	defer span.End()

	var req bookingReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	in, err := req.toRequest(h.loc)
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	b, err := h.service.UpdateBooking(ctx, chi.URLParam(r, "id"), in, httpx.Credential(r))
	if err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
