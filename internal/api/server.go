// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/soltrees/api/internal/logging"
	"github.com/soltrees/api/internal/models"
	"github.com/soltrees/api/internal/service"
)

// Service interfaces for dependency injection and testing

// PlacementServiceInterface defines the interface for placement operations
type PlacementServiceInterface interface {
	PlaceTree(ctx context.Context, input *service.PlaceTreeInput) (*models.Tree, error)
}

// TreeServiceInterface defines the interface for tree read operations
type TreeServiceInterface interface {
	ListAll(ctx context.Context) ([]*models.Tree, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Tree, error)
	GetByID(ctx context.Context, id string) (*models.Tree, error)
	GetUserTrees(ctx context.Context, address string) ([]*models.Tree, error)
	Click(ctx context.Context, id string, viewerAddress string) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]*models.Tree, error)
	RecentLeaderboard(ctx context.Context, window time.Duration, limit int) ([]*models.Tree, error)
}

// UserServiceInterface defines the interface for user operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, address string) (*models.User, error)
	GetUser(ctx context.Context, address string) (*models.User, error)
}

// CategoryServiceInterface defines the interface for category operations
type CategoryServiceInterface interface {
	Create(ctx context.Context, input *service.CreateCategoryInput) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
}

// AmbienceHandler serves the websocket endpoint for the background
// simulation.
type AmbienceHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	placementService PlacementServiceInterface
	treeService      TreeServiceInterface
	userService      UserServiceInterface
	categoryService  CategoryServiceInterface
	ambience         AmbienceHandler
	config           *ServerConfig
	logger           *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// NewServer creates a new API server instance. ambience may be nil, in which
// case the websocket route is not registered.
func NewServer(
	config *ServerConfig,
	placementService PlacementServiceInterface,
	treeService TreeServiceInterface,
	userService UserServiceInterface,
	categoryService CategoryServiceInterface,
	ambience AmbienceHandler,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		placementService: placementService,
		treeService:      treeService,
		userService:      userService,
		categoryService:  categoryService,
		ambience:         ambience,
		config:           config,
		logger:           logger,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// User endpoints
	api.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/users/{address}", s.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{address}/trees", s.handleGetUserTrees).Methods("GET")

	// Tree endpoints
	api.HandleFunc("/trees", s.handlePlaceTree).Methods("POST")
	api.HandleFunc("/trees", s.handleListTrees).Methods("GET")
	api.HandleFunc("/trees/{id}", s.handleGetTree).Methods("GET")
	api.HandleFunc("/trees/{id}/click", s.handleClickTree).Methods("POST")

	// Category endpoints
	api.HandleFunc("/categories", s.handleListCategories).Methods("GET")
	api.HandleFunc("/categories", s.handleCreateCategory).Methods("POST")

	// Leaderboard endpoint
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	// Ambience websocket
	if s.ambience != nil {
		s.router.HandleFunc("/ws", s.ambience.HandleWS)
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "soltrees",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
