// Package gateway is the pass-through web service in front of the upstream
// items API.
//
// Routes:
//
//	GET  /health                        {"status":"ok"}
//	GET  /items?all=bool&page_size=int  JSON array of items
//	POST /items {"name": "..."}         201 with the created item
//	GET  /metrics                       Prometheus exposition
//
// Upstream failures are translated into gateway statuses by error kind;
// see [StatusFor].
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/relay/pkg/cache"
	relayerrors "github.com/matzehuels/relay/pkg/errors"
	"github.com/matzehuels/relay/pkg/httputil"
	"github.com/matzehuels/relay/pkg/retry"
	"github.com/matzehuels/relay/pkg/security"
	"github.com/matzehuels/relay/pkg/upstream"
)

// DefaultPageSize is used when page_size is not given.
const DefaultPageSize = 25

// Upstream is the subset of [upstream.Client] the gateway needs.
type Upstream interface {
	ListItemsPage(ctx context.Context, pageSize int, cursor *int) (*upstream.ItemPage, error)
	CreateItem(ctx context.Context, name string) (*upstream.Item, error)
}

// Gateway serves the public routes.
type Gateway struct {
	upstream Upstream
	cache    cache.Cache
	ttl      time.Duration
	logger   *log.Logger
	metrics  http.Handler

	// generation invalidates cached pages after a successful create.
	generation atomic.Int64
}

// Option customizes a Gateway.
type Option func(g *Gateway)

// WithCache caches upstream pages in c for ttl.
// default: no caching
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(g *Gateway) {
		if c != nil {
			g.cache = c
			g.ttl = ttl
		}
	}
}

// WithLogger sets the request and error logger.
// default: log.Default()
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(g *Gateway) {
		if gatherer != nil {
			g.metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		}
	}
}

// New returns a Gateway over up.
func New(up Upstream, opts ...Option) *Gateway {
	g := &Gateway{
		upstream: up,
		cache:    cache.NewNullCache(),
		logger:   log.Default(),
		metrics:  promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the HTTP routes.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLogger(g.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers)

	r.Get("/health", g.health)
	r.Get("/items", g.listItems)
	r.Post("/items", g.createItem)
	r.Method(http.MethodGet, "/metrics", g.metrics)
	return r
}

func (g *Gateway) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	all := false
	if v := q.Get("all"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "all must be a boolean", retry.KindValidation)
			return
		}
		all = b
	}
	pageSize := DefaultPageSize
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "page_size must be a positive integer", retry.KindValidation)
			return
		}
		pageSize = n
	}

	items, err := g.collect(r.Context(), pageSize, all)
	if err != nil {
		g.upstreamError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

// collect returns the first page, or every page when all is set.
func (g *Gateway) collect(ctx context.Context, pageSize int, all bool) ([]upstream.Item, error) {
	items := []upstream.Item{}
	var cursor *int
	for {
		page, err := g.page(ctx, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if !all || page.NextCursor == nil {
			return items, nil
		}
		if cursor != nil && *page.NextCursor <= *cursor {
			return items, nil
		}
		next := *page.NextCursor
		cursor = &next
	}
}

// page fetches one upstream page through the cache. Cache errors are
// logged and treated as misses.
func (g *Gateway) page(ctx context.Context, pageSize int, cursor *int) (*upstream.ItemPage, error) {
	at := 0
	if cursor != nil {
		at = *cursor
	}
	key := cache.Key("items", g.generation.Load(), pageSize, at)

	if data, ok, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("cache get failed", "error", err)
	} else if ok {
		var page upstream.ItemPage
		if err := json.Unmarshal(data, &page); err == nil {
			return &page, nil
		}
	}

	page, err := g.upstream.ListItemsPage(ctx, pageSize, cursor)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(page); err == nil {
		if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
			g.logger.Warn("cache set failed", "error", err)
		}
	}
	return page, nil
}

type createRequest struct {
	Name string `json:"name"`
}

func (g *Gateway) createItem(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body", retry.KindValidation)
		return
	}

	item, err := g.upstream.CreateItem(r.Context(), req.Name)
	if err != nil {
		if relayerrors.IsValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, relayerrors.UserMessage(err), retry.KindValidation)
			return
		}
		g.upstreamError(w, r, err)
		return
	}
	g.generation.Add(1)
	httputil.WriteJSON(w, http.StatusCreated, item)
}

// ErrorBody is the JSON body of every gateway error.
type ErrorBody struct {
	Error string          `json:"error"`
	Kind  retry.ErrorKind `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, msg string, kind retry.ErrorKind) {
	httputil.WriteJSON(w, status, ErrorBody{Error: msg, Kind: kind})
}

// StatusFor maps a classified upstream failure to the gateway's status.
//
//	authentication, authorization  502
//	rate_limit                     503
//	timeout                        504
//	validation                     422
//	anything else                  502
func StatusFor(kind retry.ErrorKind) int {
	switch kind {
	case retry.KindRateLimit:
		return http.StatusServiceUnavailable
	case retry.KindTimeout:
		return http.StatusGatewayTimeout
	case retry.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (g *Gateway) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	ce := retry.Classify(err)
	status := StatusFor(ce.Kind)
	g.logger.Error("upstream failure",
		"path", r.URL.Path,
		"kind", ce.Kind,
		"upstream_status", ce.StatusCode,
		"status", status,
		"request_id", middleware.GetReqID(r.Context()))

	if ce.Kind == retry.KindRateLimit && ce.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(ce.RetryAfter))
	}
	writeError(w, status, ce.Message, ce.Kind)
}
