// Package server exposes the public site, the read-only content API and the
// admin editor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aselya-coder/PraktisiMengajar/internal/auth"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
	"github.com/aselya-coder/PraktisiMengajar/internal/render"
	"github.com/aselya-coder/PraktisiMengajar/internal/store"
)

// ContentStore is the part of *store.Store the server uses. The admin
// handlers are its only writers.
type ContentStore interface {
	Load(ctx context.Context) store.LoadResult
	Update(ctx context.Context, key model.SectionKey, record any) store.UpdateResult
	Content() *model.Content
	Section(key model.SectionKey) (any, error)
	Source() store.Source
	Loaded() bool
}

type Server struct {
	store    ContentStore
	renderer *render.Renderer
	auth     *auth.Authenticator
	log      *zap.Logger

	siteTitle     string
	baseURL       string
	staticDir     string
	metrics       http.Handler
	secureCookies bool

	mux *http.ServeMux
}

type Option func(*Server)

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSite sets the site title and the base URL prefixed to asset links.
func WithSite(title, baseURL string) Option {
	return func(s *Server) {
		s.siteTitle = title
		s.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithStaticDir serves files under /static/ from dir.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithSecureCookies marks session cookies Secure, for deployments behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

func New(st ContentStore, r *render.Renderer, a *auth.Authenticator, opts ...Option) *Server {
	s := &Server{
		store:     st,
		renderer:  r,
		auth:      a,
		log:       zap.NewNop(),
		siteTitle: "Praktisi Mengajar",
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("module", "server"))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/content", s.handleContent)
	s.mux.HandleFunc("GET /api/content/{section}", s.handleContentSection)
	if s.staticDir != "" {
		if info, err := os.Stat(s.staticDir); err == nil && info.IsDir() {
			s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
		} else {
			s.log.Info("static directory not found, not serving /static/", zap.String("dir", s.staticDir))
		}
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("GET /admin/login", s.handleLoginPage)
	s.mux.HandleFunc("POST /admin/login", s.handleLogin)
	s.mux.HandleFunc("POST /admin/logout", s.handleLogout)
	s.mux.Handle("GET /admin", s.requireUser(http.HandlerFunc(s.handleDashboard)))
	s.mux.Handle("POST /admin/refresh", s.requireUser(http.HandlerFunc(s.handleRefresh)))
	s.mux.Handle("GET /admin/sections/{section}", s.requireUser(http.HandlerFunc(s.handleEditor)))
	s.mux.Handle("POST /admin/sections/{section}", s.requireUser(http.HandlerFunc(s.handleEditorPost)))
	s.mux.Handle("PUT /admin/api/sections/{section}", s.requireUser(http.HandlerFunc(s.handleSectionPut)))
}

// Handler returns the routed handler wrapped in access logging.
func (s *Server) Handler() http.Handler {
	return s.accessLog(s.mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) page(c *model.Content) model.PageData {
	return model.PageData{SiteTitle: s.siteTitle, BaseURL: s.baseURL, Content: c}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
