package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cku-autoscaler/api/handlers"
	"github.com/OldStager01/cku-autoscaler/api/middleware"
	"github.com/OldStager01/cku-autoscaler/api/websocket"
	"github.com/OldStager01/cku-autoscaler/internal/auth"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/pkg/config"
)

const maxRequestBody = 64 << 10

type Server struct {
	router         *gin.Engine
	httpServer     *http.Server
	config         *config.Config
	authService    *auth.Service
	metrics        *metrics.Metrics
	wsHub          *websocket.Hub
	wsBridge       *websocket.EventBridge
	clusterManager handlers.ClusterManager
}

func NewServer(cfg *config.Config, clusterManager handlers.ClusterManager, m *metrics.Metrics) *Server {
	if gin.Mode() != gin.TestMode {
		if cfg.App.Mode == "production" {
			gin.SetMode(gin.ReleaseMode)
		} else {
			gin.SetMode(gin.DebugMode)
		}
	}
	if m == nil {
		m = metrics.Get()
	}

	api := cfg.API
	s := &Server{
		router:         gin.New(),
		config:         cfg,
		authService:    auth.NewService(api.JWTSecret, api.JWTDuration, api.JWTIssuer, api.OperatorKeyHash),
		metrics:        m,
		wsHub:          websocket.NewHub(&cfg.WebSocket),
		clusterManager: clusterManager,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go s.wsHub.Run()

	// Forward orchestrator events to WebSocket clients
	s.wsBridge = websocket.NewEventBridge(s.wsHub, clusterManager.SubscribeAllEvents())
	s.wsBridge.Start()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.CORSConfigFrom(s.config.API.CORS)))
	s.router.Use(middleware.RequestSizeLimit(maxRequestBody))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.clusterManager)
	authHandler := handlers.NewAuthHandler(s.authService)
	clusterHandler := handlers.NewClusterHandler(s.clusterManager)
	metricsHandler := handlers.NewMetricsHandler(s.clusterManager)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.Path, gin.WrapH(s.metrics.Handler()))
	}

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	s.router.POST("/auth/token", middleware.TokenRateLimiter(s.config.API.TokenRateLimit), authHandler.Token)

	// State-changing routes get a tighter per-route limit
	mutations := middleware.NewEndpointRateLimiter()
	mutations.AddEndpoint("/clusters/:id/pause", 10, time.Minute)
	mutations.AddEndpoint("/clusters/:id/resume", 10, time.Minute)

	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	protected.Use(mutations.Middleware())
	{
		protected.GET("/clusters", clusterHandler.List)
		protected.GET("/clusters/:id", clusterHandler.Get)
		protected.POST("/clusters/:id/pause", clusterHandler.Pause)
		protected.POST("/clusters/:id/resume", clusterHandler.Resume)

		protected.GET("/clusters/:id/metrics", metricsHandler.GetUtilization)
		protected.GET("/clusters/:id/events", metricsHandler.GetEvents)
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.API.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.wsBridge.Stop()
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) AuthService() *auth.Service {
	return s.authService
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
