package bookingclient

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/Facility-Booking-System/internal/event/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/peer"
)

type Client struct {
	c *peer.Client[domain.BookingRef]
}

func New(log *slog.Logger, baseURL string, opts ...peer.Option) *Client {
	return &Client{c: peer.NewClient[domain.BookingRef](log, "booking-service", baseURL, "/api/bookings", opts...)}
}

func (c *Client) GetBooking(ctx context.Context, id, credential string) (domain.BookingRef, error) {
	return c.c.GetByID(ctx, id, credential)
}
