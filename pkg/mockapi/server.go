// Package mockapi is an in-process stand-in for the third-party items API.
//
// It serves a cursor-paginated item listing and item creation behind
// bearer-token auth, and can be told to fail its first requests so client
// retries can be exercised end to end.
package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/relay/pkg/httputil"
)

// DefaultToken is the bearer token accepted unless WithToken says otherwise.
const DefaultToken = "dev-token-123"

// Page size bounds for GET /items.
const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

// Server is the mock upstream.
type Server struct {
	store  Store
	token  string
	faults *faults
	logger *log.Logger
}

// Option customizes a Server.
type Option func(s *Server)

// WithToken sets the accepted bearer token.
// default: DefaultToken
func WithToken(token string) Option {
	return func(s *Server) {
		if token != "" {
			s.token = token
		}
	}
}

// WithFaults enables fault injection.
func WithFaults(cfg FaultConfig) Option {
	return func(s *Server) {
		s.faults = newFaults(cfg)
	}
}

// WithLogger sets the request logger.
// default: log.Default()
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Server over store. A nil store uses a fresh MemoryStore.
func New(store Store, opts ...Option) *Server {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Server{
		store:  store,
		token:  DefaultToken,
		faults: newFaults(FaultConfig{}),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.faults.middleware)
		r.Use(s.requireBearer)
		r.Get("/items", s.listItems)
		r.Post("/items", s.createItem)
	})
	return r
}

// FaultsRemaining reports how many injected failures are still pending.
func (s *Server) FaultsRemaining() int { return s.faults.remaining() }

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Detail{Detail: "Missing bearer token"})
			return
		}
		if token != s.token {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Detail{Detail: "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type listResponse struct {
	Items      []Item `json:"items"`
	NextCursor *int   `json:"next_cursor"`
	Count      int    `json:"count"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	pageSize, ok := queryInt(w, r, "page_size", DefaultPageSize, 1, MaxPageSize)
	if !ok {
		return
	}
	cursor, ok := queryInt(w, r, "cursor", 0, 0, -1)
	if !ok {
		return
	}

	items, total, err := s.store.Page(r.Context(), cursor, pageSize)
	if err != nil {
		s.logger.Error("list items", "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.Detail{Detail: "store unavailable"})
		return
	}

	resp := listResponse{Items: items, Count: len(items)}
	if end := min(cursor+pageSize, total); end < total {
		resp.NextCursor = &end
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type createRequest struct {
	Name *string `json:"name"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.Detail{Detail: "invalid JSON body"})
		return
	}
	if req.Name == nil {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.Detail{Detail: "field required: name"})
		return
	}

	item, err := s.store.Create(r.Context(), *req.Name)
	if err != nil {
		s.logger.Error("create item", "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.Detail{Detail: "store unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

// queryInt parses an optional integer parameter. hi < 0 means unbounded.
// On failure it writes a 422 and returns false.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi >= 0 && n > hi) {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.Detail{Detail: "invalid " + name})
		return 0, false
	}
	return n, true
}
