package eventclient

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/Facility-Booking-System/internal/approval/domain"
	"github.com/dmehra2102/Facility-Booking-System/pkg/peer"
)

type Client struct {
	c *peer.Client[domain.EventRef]
}

func New(log *slog.Logger, baseURL string, opts ...peer.Option) *Client {
	return &Client{c: peer.NewClient[domain.EventRef](log, "event-service", baseURL, "/api/events", opts...)}
}

func (c *Client) GetEvent(ctx context.Context, id, credential string) (domain.EventRef, error) {
	return c.c.GetByID(ctx, id, credential)
}
