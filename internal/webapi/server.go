package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"guildpilot/internal/analytics"
	"guildpilot/internal/config"
	"guildpilot/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// GuildDirectory answers questions about the guilds the bot is in.
type GuildDirectory interface {
	GuildName(guildID string) (string, bool)
}

type Server struct {
	cfg       config.WebConfig
	store     storage.Store
	analytics *analytics.Service
	sessions  SessionStore
	auth      Authenticator
	guilds    GuildDirectory
	logger    *zap.Logger
	limiter   *clientLimiter
	router    *mux.Router
	now       func() time.Time
}

func New(cfg config.WebConfig, store storage.Store, analyticsService *analytics.Service, sessions SessionStore, auth Authenticator, guilds GuildDirectory, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		analytics: analyticsService,
		sessions:  sessions,
		auth:      auth,
		guilds:    guilds,
		logger:    logger,
		limiter:   newClientLimiter(cfg.RequestsPerSecond, cfg.Burst),
		router:    mux.NewRouter(),
		now:       time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodGet)
	api.HandleFunc("/auth/callback", s.handleCallback).Methods(http.MethodGet)
	api.HandleFunc("/auth/me", s.withSession(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", s.withSession(s.handleLogout)).Methods(http.MethodPost)

	api.HandleFunc("/config/{guildId}", s.withGuild(s.handleGetConfig)).Methods(http.MethodGet)
	api.HandleFunc("/config/{guildId}", s.withGuild(s.handleUpdateConfig)).Methods(http.MethodPut)
	api.HandleFunc("/config/{guildId}", s.withGuild(s.handleResetConfig)).Methods(http.MethodDelete)

	api.HandleFunc("/users/{guildId}/{userId}", s.withGuild(s.handleGetUser)).Methods(http.MethodGet)
	api.HandleFunc("/stats/{guildId}", s.withGuild(s.handleStats)).Methods(http.MethodGet)
}

// Handler is the full middleware chain: CORS, then rate limiting, then routing.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.rateLimit(s.router))
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web api listening", zap.String("addr", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
