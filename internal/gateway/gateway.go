// Package gateway is the single entry point for clients. It forwards each request to the service
// owning the path prefix, spreading load round-robin over that service's replicas, and answers
// with a fallback 503 while the route's circuit breaker is open.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dmehra2102/Facility-Booking-System/pkg/breaker"
	"github.com/dmehra2102/Facility-Booking-System/pkg/httpx"
	"github.com/dmehra2102/Facility-Booking-System/pkg/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type route struct {
	name      string
	prefix    string
	breaker   *breaker.Breaker
	upstreams []*httputil.ReverseProxy
	next      atomic.Uint64
}

func (r *route) pick() *httputil.ReverseProxy {
	n := r.next.Add(1) - 1
	return r.upstreams[n%uint64(len(r.upstreams))]
}

type Option func(*options)

type options struct {
	transport http.RoundTripper
	timeout   time.Duration
	breaker   []breaker.Option
}

// WithTransport replaces the upstream transport, for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithUpstreamTimeout bounds each forwarded request. A timeout counts as a failure; a client that
// hangs up first does not.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithBreakerOptions(opts ...breaker.Option) Option {
	return func(o *options) { o.breaker = append(o.breaker, opts...) }
}

type Gateway struct {
	log     *slog.Logger
	routes  []*route
	timeout time.Duration
}

func New(log *slog.Logger, table Table, opts ...Option) (*Gateway, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	g := &Gateway{log: log, timeout: o.timeout}
	onChange := breaker.OnStateChange(func(name string, from, to breaker.State) {
		log.Warn("circuit breaker transition", "route", name, "from", from.String(), "to", to.String())
	})

	for _, rt := range table.Routes {
		r := &route{
			name:    rt.Name,
			prefix:  rt.Prefix,
			breaker: breaker.New(rt.Name, table.Breaker.settings(), append([]breaker.Option{onChange}, o.breaker...)...),
		}
		for _, raw := range rt.Upstreams {
			target, err := url.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", rt.Name, err)
			}
			r.upstreams = append(r.upstreams, g.newProxy(rt.Name, target, o.transport))
		}
		g.routes = append(g.routes, r)
	}
	sortByPrefix(g.routes)
	return g, nil
}

func (g *Gateway) newProxy(name string, target *url.URL, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			otel.GetTextMapPropagator().Inject(pr.Out.Context(), propagation.HeaderCarrier(pr.Out.Header))
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(r.Context().Err(), context.Canceled) {
				g.log.Debug("client went away", "route", name, "upstream", target.Host)
				w.WriteHeader(statusClientClosedRequest)
				return
			}
			g.log.Warn("upstream request failed", "route", name, "upstream", target.Host, "err", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(tracing.Middleware("api-gateway"))
	r.Get("/healthz", httpx.Healthz)
	r.Get("/gateway/breakers", g.breakers)
	r.Handle("/*", http.HandlerFunc(g.forward))
	return r
}

func (g *Gateway) match(path string) *route {
	for _, r := range g.routes {
		if matches(r.prefix, path) {
			return r
		}
	}
	return nil
}

func (g *Gateway) forward(w http.ResponseWriter, req *http.Request) {
	rt := g.match(req.URL.Path)
	if rt == nil {
		httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"code": "ROUTE_NOT_FOUND", "error": "no route for " + req.URL.Path})
		return
	}

	permit, err := rt.breaker.Allow()
	if errors.Is(err, breaker.ErrOpen) {
		fallback(w, rt.name)
		return
	}

	parent := req.Context()
	if g.timeout > 0 {
		ctx, cancel := context.WithTimeout(parent, g.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	// ReverseProxy panics with http.ErrAbortHandler when the upstream body breaks off after the
	// headers went out. The permit still has to be settled or a HALF_OPEN route never recovers.
	defer func() {
		if v := recover(); v != nil {
			settle(permit, parent, http.StatusBadGateway)
			panic(v)
		}
	}()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	rt.pick().ServeHTTP(rec, req)
	settle(permit, parent, rec.status)
}

// statusClientClosedRequest is nginx's code for a request the client abandoned.
const statusClientClosedRequest = 499

// settle reports one forwarded call to the route breaker. A call the client abandoned is neither a
// success nor a failure of the upstream.
func settle(p breaker.Permit, parent context.Context, status int) {
	switch {
	case parent.Err() != nil:
		p.Release()
	case status >= http.StatusInternalServerError:
		p.Failure()
	default:
		p.Success()
	}
}

func fallback(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = fmt.Fprintf(w, "%s is temporarily unavailable, please try again later", name)
}

// Snapshots returns the state of every route breaker, ordered by name.
func (g *Gateway) Snapshots() []breaker.Snapshot {
	out := make([]breaker.Snapshot, 0, len(g.routes))
	for _, r := range g.routes {
		out = append(out, r.breaker.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *Gateway) breakers(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, g.Snapshots())
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
