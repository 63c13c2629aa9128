// Package directory holds the read-only views of rooms and users owned by the Room and User
// Directory services, and the clients used to fetch them.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmehra2102/Facility-Booking-System/pkg/peer"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RoleFaculty Role = "FACULTY"
	RoleStudent Role = "STUDENT"
)

// ParseRole normalises case and whitespace. Unknown names are kept as given (upper-cased) so the
// caller decides how to treat them.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

// privileged roles may record approval decisions.
var privileged = map[Role]bool{
	RoleStaff: true,
	RoleAdmin: true,
}

func (r Role) IsPrivileged() bool { return privileged[r] }

// ID accepts an identifier encoded as a JSON string or number. The directories key rooms and users
// by numeric ids while the rest of the system passes ids around as strings.
type ID string

func (i *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: want string or number, got %s", b)
	}
	*i = ID(n.String())
	return nil
}

type Room struct {
	ID        string `json:"id"`
	Name      string `json:"roomName"`
	Capacity  int    `json:"capacity"`
	Features  string `json:"features"`
	Available bool   `json:"available"`
}

func (r *Room) UnmarshalJSON(b []byte) error {
	type plain Room
	var v struct {
		plain
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Room(v.plain)
	r.ID = string(v.ID)
	return nil
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	UserType string `json:"userType"`
	Active   *bool  `json:"active"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var v struct {
		plain
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*u = User(v.plain)
	u.ID = string(v.ID)
	return nil
}

// IsActive treats a missing flag as active; only an explicit false blocks the user.
func (u User) IsActive() bool { return u.Active == nil || *u.Active }

type RoomDirectory interface {
	GetRoom(ctx context.Context, id, credential string) (Room, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id, credential string) (User, error)
}

type Rooms struct {
	c *peer.Client[Room]
}

func NewRooms(log *slog.Logger, baseURL string, opts ...peer.Option) *Rooms {
	return &Rooms{c: peer.NewClient[Room](log, "room-service", baseURL, "/api/rooms", opts...)}
}

func (r *Rooms) GetRoom(ctx context.Context, id, credential string) (Room, error) {
	return r.c.GetByID(ctx, id, credential)
}

type Users struct {
	c *peer.Client[User]
}

func NewUsers(log *slog.Logger, baseURL string, opts ...peer.Option) *Users {
	return &Users{c: peer.NewClient[User](log, "user-service", baseURL, "/api/users", opts...)}
}

func (u *Users) GetUser(ctx context.Context, id, credential string) (User, error) {
	return u.c.GetByID(ctx, id, credential)
}
