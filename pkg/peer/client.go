// Package peer is the synchronous HTTP client every service uses to look up an entity owned by
// another service. A lookup either yields the decoded entity or one of two errors: ErrNotFound when
// the peer answered 404, and ErrUnavailable for everything that means "could not ask" (transport
// error, timeout, unexpected status, undecodable body, open breaker). Callers fail closed on both.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/apperr"
	"github.com/dmehra2102/Facility-Booking-System/pkg/breaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound    = apperr.New(apperr.NotFound, "PEER_NOT_FOUND", "peer: entity not found")
	ErrUnavailable = apperr.New(apperr.Unavailable, "DEPENDENCY_UNAVAILABLE", "peer: dependency unavailable")
)

const (
	DefaultTimeout = 3 * time.Second
	maxBodyBytes   = 1 << 20
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*config)

type config struct {
	timeout time.Duration
	doer    Doer
	breaker *breaker.Breaker
}

func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithDoer(d Doer) Option {
	return func(c *config) { c.doer = d }
}

// WithBreaker guards every call with b. While b is open no request leaves the process.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *config) { c.breaker = b }
}

// Client fetches T from GET {baseURL}{resourcePath}/{id}.
type Client[T any] struct {
	log          *slog.Logger
	name         string
	baseURL      string
	resourcePath string
	cfg          config
	tracer       trace.Tracer
}

func NewClient[T any](log *slog.Logger, name, baseURL, resourcePath string, opts ...Option) *Client[T] {
	cfg := config{timeout: DefaultTimeout, doer: http.DefaultClient}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client[T]{
		log:          log,
		name:         name,
		baseURL:      strings.TrimRight(baseURL, "/"),
		resourcePath: "/" + strings.Trim(resourcePath, "/"),
		cfg:          cfg,
		tracer:       otel.Tracer("peer-" + name),
	}
}

func (c *Client[T]) Name() string { return c.name }

// GetByID looks up one entity. credential is forwarded verbatim as the Authorization header.
func (c *Client[T]) GetByID(ctx context.Context, id, credential string) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, c.name+".GetByID", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("peer.name", c.name), attribute.String("peer.entity_id", id))

	if id == "" {
		return zero, ErrNotFound
	}

	var permit breaker.Permit
	if c.cfg.breaker != nil {
		p, err := c.cfg.breaker.Allow()
		if err != nil {
			span.SetStatus(codes.Error, "breaker open")
			return zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, err)
		}
		permit = p
	}

	v, err := c.get(ctx, id, credential)

	if c.cfg.breaker != nil {
		switch {
		case ctx.Err() != nil:
			// The caller gave up; that says nothing about the peer.
			permit.Release()
		case err != nil && !errors.Is(err, ErrNotFound):
			permit.Failure()
		default:
			// A 404 is a well-formed answer, not a sign the peer is sick.
			permit.Success()
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrUnavailable) {
			c.log.Warn("peer lookup failed", "peer", c.name, "id", id, "err", err)
		}
		return zero, err
	}
	return v, nil
}

func (c *Client[T]) get(ctx context.Context, id, credential string) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	target := c.baseURL + c.resourcePath + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: build request: %v", ErrUnavailable, c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", credential)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.cfg.doer.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, c.name, id)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return zero, fmt.Errorf("%w: %s: unexpected status %d", ErrUnavailable, c.name, resp.StatusCode)
	}

	var v T
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&v); err != nil {
		return zero, fmt.Errorf("%w: %s: decode: %v", ErrUnavailable, c.name, err)
	}
	return v, nil
}
