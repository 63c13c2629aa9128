package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	bookingapp "github.com/dmehra2102/Facility-Booking-System/internal/booking/application"
	bookinghttp "github.com/dmehra2102/Facility-Booking-System/internal/booking/infrastructure/http"
	bookingmem "github.com/dmehra2102/Facility-Booking-System/internal/booking/infrastructure/memory"
	"github.com/dmehra2102/Facility-Booking-System/internal/directory"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/application"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/infrastructure/bookingclient"
	"github.com/dmehra2102/Facility-Booking-System/internal/event/infrastructure/memory"
	"github.com/dmehra2102/Facility-Booking-System/pkg/outbox"
)

// directoryServer plays both the Room and the User Directory.
func directoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	users := map[string]string{
		"u-staff":   `{"id":"u-staff","name":"Sam","email":"sam@campus.example.edu","role":"STAFF","active":true}`,
		"u-student": `{"id":"u-student","name":"Kim","email":"kim@campus.example.edu","role":"STUDENT","active":true}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/rooms/r-hall":
			_, _ = w.Write([]byte(`{"id":"r-hall","roomName":"Great Hall","capacity":500,"available":true}`))
		case strings.HasPrefix(r.URL.Path, "/api/users/"):
			body, ok := users[strings.TrimPrefix(r.URL.Path, "/api/users/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, requester, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer campus-sso")
	if requester != "" {
		req.Header.Set(RequesterHeader, requester)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestEventOverRealBookingService(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := directoryServer(t)

	bookingSvc := bookingapp.NewService(log, bookingmem.NewRepository(outbox.NewMemoryStore()),
		directory.NewRooms(log, dir.URL), directory.NewUsers(log, dir.URL))
	bookingSrv := httptest.NewServer(bookinghttp.NewHandler(log, bookingSvc).Routes())
	defer bookingSrv.Close()

	eventSvc := application.NewService(log, memory.NewRepository(outbox.NewMemoryStore()),
		bookingclient.New(log, bookingSrv.URL), directory.NewUsers(log, dir.URL), domain.NewCapacityPolicy(nil))
	eventSrv := httptest.NewServer(NewHandler(log, eventSvc).Routes())
	defer eventSrv.Close()

	resp, booking := do(t, http.MethodPost, bookingSrv.URL+"/api/bookings", "",
		`{"userId":"u-staff","roomId":"r-hall","startTime":"2024-09-02T09:00:00Z","endTime":"2024-09-02T12:00:00Z"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking status = %d, body = %v", resp.StatusCode, booking)
	}
	bookingID := booking["id"].(string)

	resp, ev := do(t, http.MethodPost, eventSrv.URL+"/api/events", "",
		`{"organizerId":"u-staff","eventName":"Welcome Week","bookingId":"`+bookingID+`","expectedAttendees":350}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("350 attendees: status = %d, body = %v", resp.StatusCode, ev)
	}
	eventID := ev["id"].(string)

	resp, body := do(t, http.MethodPost, eventSrv.URL+"/api/events", "",
		`{"organizerId":"u-staff","eventName":"Welcome Week","bookingId":"`+bookingID+`","expectedAttendees":450}`)
	if resp.StatusCode != http.StatusForbidden || body["code"] != "CAPACITY_EXCEEDED" {
		t.Fatalf("450 attendees: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodPost, eventSrv.URL+"/api/events", "",
		`{"organizerId":"u-student","eventName":"Hijack","bookingId":"`+bookingID+`","expectedAttendees":10}`)
	if resp.StatusCode != http.StatusForbidden || body["code"] != "OWNERSHIP_MISMATCH" {
		t.Fatalf("foreign organizer: status = %d, body = %v", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodDelete, eventSrv.URL+"/api/events/"+eventID, "u-student", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete by student: status = %d, body = %v", resp.StatusCode, body)
	}
	resp, _ = do(t, http.MethodDelete, eventSrv.URL+"/api/events/"+eventID, "u-staff", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete by organizer: status = %d", resp.StatusCode)
	}
}

func TestEventWithLedgerDown(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := directoryServer(t)

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	eventSvc := application.NewService(log, memory.NewRepository(outbox.NewMemoryStore()),
		bookingclient.New(log, downURL), directory.NewUsers(log, dir.URL), domain.NewCapacityPolicy(nil))
	eventSrv := httptest.NewServer(NewHandler(log, eventSvc).Routes())
	defer eventSrv.Close()

	resp, body := do(t, http.MethodPost, eventSrv.URL+"/api/events", "",
		`{"organizerId":"u-staff","eventName":"x","bookingId":"b-1","expectedAttendees":5}`)
	if resp.StatusCode != http.StatusServiceUnavailable || body["code"] != "INVALID_BOOKING" {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}
