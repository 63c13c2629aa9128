// Package httpx holds the JSON plumbing shared by the service handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
)

const maxRequestBytes = 1 << 20

var ErrBadRequest = apperr.New(apperr.Validation, "INVALID_REQUEST", "invalid request body")

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps err onto a status and a {code, error} body. Server-side faults are logged with
// the full chain; the caller only sees the public message.
func WriteError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	code := apperr.CodeOf(err)

	switch {
	case apperr.KindOf(err) == apperr.ConfigFault:
		log.Error("configuration fault", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	case status == http.StatusServiceUnavailable:
		log.Warn("dependency unavailable", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	default:
		log.Info("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	}

	WriteJSON(w, status, errorBody{Code: code, Error: apperr.PublicMessage(err)})
}

// DecodeJSON reads a bounded JSON body into v and rejects unknown trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return ErrBadRequest.WithCause(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrBadRequest.WithCause(fmt.Errorf("trailing data after JSON body"))
	}
	return nil
}

// Credential is the caller's Authorization header, forwarded to peers unchanged.
func Credential(r *http.Request) string {
	return r.Header.Get("Authorization")
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
