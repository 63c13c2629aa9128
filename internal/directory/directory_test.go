package directory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRolePrivilege(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"STAFF", true},
		{"admin", true},
		{" Staff ", true},
		{"FACULTY", false},
		{"STUDENT", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in).IsPrivileged(); got != tt.want {
			t.Errorf("ParseRole(%q).IsPrivileged() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUsersDecodesDirectoryPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"name":"Grace","email":"grace@campus.example.edu","role":"faculty","userType":"faculty","token":null,"active":false}`))
	}))
	defer srv.Close()

	users := NewUsers(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL)
	u, err := users.GetUser(context.Background(), "7", "Bearer t")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.ID != "7" || u.Email != "grace@campus.example.edu" {
		t.Errorf("user = %+v", u)
	}
	if u.Role != RoleFaculty {
		t.Errorf("Role = %q, want FACULTY", u.Role)
	}
	if u.IsActive() {
		t.Error("explicit active=false must be inactive")
	}
	if (User{}).IsActive() != true {
		t.Error("missing active flag must count as active")
	}
}

func TestRoomsDecodesDirectoryPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"roomName":"Auditorium","capacity":500,"features":"projector, whiteboard","available":true}`))
	}))
	defer srv.Close()

	rooms := NewRooms(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL)
	room, err := rooms.GetRoom(context.Background(), "1", "")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if room.ID != "1" || room.Name != "Auditorium" || room.Capacity != 500 || room.Features != "projector, whiteboard" {
		t.Fatalf("room = %+v", room)
	}
}

func TestIDAcceptsStringOrNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"id":42,"roomName":"A"}`, "42"},
		{`{"id":"r-42","roomName":"A"}`, "r-42"},
		{`{"id":null,"roomName":"A"}`, ""},
		{`{"roomName":"A"}`, ""},
	}
	for _, tt := range tests {
		var r Room
		if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if r.ID != tt.want || r.Name != "A" {
			t.Errorf("Unmarshal(%s) = %+v, want id %q", tt.in, r, tt.want)
		}
	}

	var u User
	if err := json.Unmarshal([]byte(`{"id":true}`), &u); err == nil {
		t.Error("boolean id must be rejected")
	}
}
