package devserver

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/MrEthical07/notees/backend"
	"github.com/MrEthical07/notees/metrics/export/prometheus"
	"github.com/MrEthical07/notees/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server is the dev server's http.Handler.
type Server struct {
	backend *backend.Backend
	cfg     Config
	logger  *zap.Logger
	handler http.Handler
}

// New validates cfg and builds the route table over b.
func New(b *backend.Backend, cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		backend: b,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.observe(s.routes())
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no Route matched with those values"})
	})

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", prometheus.NewExporter(s.backend).Handler()).Methods(http.MethodGet)
	r.HandleFunc("/storage/v1/object/public/{bucket}/{path:.+}", s.getPublicObject).Methods(http.MethodGet, http.MethodHead)

	strictAuth := middleware.RequireStrict(s.backend, middleware.WithReject(s.rejectAuth))
	auth := r.PathPrefix("/auth/v1").Subrouter()
	auth.Use(s.requireAPIKey)
	auth.HandleFunc("/signup", s.signUp).Methods(http.MethodPost)
	auth.HandleFunc("/token", s.token).Methods(http.MethodPost)
	auth.Handle("/logout", middleware.RequireJWTOnly(s.backend, middleware.WithReject(s.rejectAuth))(http.HandlerFunc(s.logout))).Methods(http.MethodPost)
	auth.Handle("/user", strictAuth(http.HandlerFunc(s.user))).Methods(http.MethodGet)

	rest := r.PathPrefix("/rest/v1").Subrouter()
	rest.Use(s.requireAPIKey, middleware.RequireStrict(s.backend,
		middleware.AllowAnonymous(s.cfg.AnonKey),
		middleware.WithReject(s.rejectRest),
	))
	rest.HandleFunc("/{table}", s.selectPosts).Methods(http.MethodGet)
	rest.HandleFunc("/{table}", s.insertPosts).Methods(http.MethodPost)
	rest.HandleFunc("/{table}", s.updatePosts).Methods(http.MethodPatch)
	rest.HandleFunc("/{table}", s.deletePosts).Methods(http.MethodDelete)

	storage := r.PathPrefix("/storage/v1/object").Subrouter()
	storage.Use(s.requireAPIKey, middleware.RequireStrict(s.backend, middleware.WithReject(s.rejectStorage)))
	storage.HandleFunc("/{bucket}/{path:.+}", s.putObject).Methods(http.MethodPost, http.MethodPut)

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAPIKey accepts the anon key from the apikey header or query
// parameter.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("apikey")
		if key == "" {
			key = r.URL.Query().Get("apikey")
		}
		switch {
		case key == "":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No API key found in request"})
		case subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.AnonKey)) != 1:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(p)
}

// observe records request latency and logs each request at debug level.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.backend.Metrics().Observe(elapsed)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}
