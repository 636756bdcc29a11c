package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const (
	apiKeyCacheTTL = 5 * time.Minute
	swaggerFile    = "flightbooking.swagger.json"
)

// Deps are the collaborators the HTTP surface is built from. APIKeys and
// Idempotency may be nil when no cache is available.
type Deps struct {
	Flights     flights.FlightUseCase
	Bookings    booking.BookingUseCase
	Tokens      repository.APITokenRepository
	APIKeys     api.APIKeyCache
	Idempotency api.IdempotencyStore
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	healthConn *grpc.ClientConn
	logger     *zap.Logger
}

// Run starts the gRPC health server and the HTTP API and blocks until ctx is
// canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	s, err := newServers(cfg, deps)
	if err != nil {
		return err
	}
	defer s.healthConn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("servers started",
		zap.String("http", cfg.HTTP.Address),
		zap.String("grpc", cfg.GRPC.Address),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.logger.Info("servers stopped")
		return nil
	}
}

func newServers(cfg *config.Config, deps Deps) (*Servers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial health endpoint: %w", err)
	}
	gateway := runtime.NewServeMux(runtime.WithHealthzEndpoint(grpc_health_v1.NewHealthClient(conn)))

	router := NewRouter(cfg, deps)
	router.GET("/healthz", gin.WrapH(gateway))

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		healthConn: conn,
		logger:     logger,
	}, nil
}

// NewRouter builds the gin engine: middleware, service endpoints and the
// versioned API.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(api.Recover(logger), api.RequestID(), api.AccessLog(logger, deps.Metrics))
	router.Use(cors.New(corsConfig(cfg.HTTP.CORSOrigins)))
	if cfg.HTTP.RateLimitRPS > 0 {
		router.Use(api.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst).Middleware())
	}

	router.GET("/liveness", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerFile))))
	}

	v1 := router.Group("/api/v1")
	if cfg.HTTP.APIKeysEnabled {
		v1.Use(api.APIKeyAuth(deps.Tokens, deps.APIKeys, apiKeyCacheTTL))
	}

	api.NewFlightHandler(deps.Flights).Register(v1.Group("/flights"))

	var createMiddleware []gin.HandlerFunc
	if deps.Idempotency != nil {
		ttl := time.Duration(cfg.Booking.IdempotencyTTLMinutes) * time.Minute
		createMiddleware = append(createMiddleware, api.Idempotency(deps.Idempotency, ttl))
	}
	api.NewBookingHandler(deps.Bookings).Register(v1.Group("/bookings"), createMiddleware...)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", api.HeaderAPIKey, api.HeaderIdempotencyKey, api.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", api.HeaderRequestID, api.HeaderReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
