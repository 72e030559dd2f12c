package router

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/tokenkeeper/internal/api/grpc/handler"
	"github.com/dtroode/tokenkeeper/internal/api/grpc/middleware"
	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
)

// protectedMethods require a valid bearer access token. Everything else,
// including health and reflection, is public.
var protectedMethods = map[string]struct{}{
	handler.MethodLogout:    {},
	handler.MethodLogoutAll: {},
}

// Router represents a gRPC router for token lifecycle operations.
// It manages gRPC service registration and middleware configuration.
type Router struct {
	authService    handler.AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
	health         *health.Server
}

// New creates new gRPC Router instance. authService also validates bearer
// tokens for protected methods.
func New(
	authService handler.AuthService,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
		health:         health.NewServer(),
	}
}

func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	_, ok := protectedMethods[c.FullMethod()]
	return ok
}

// Register registers all gRPC services and middleware.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.authService, r.contextManager, r.logger)

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleGRPCStream,
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	)
	r.registerAuthRoutes(s)
	r.registerHealth(s)
	reflection.Register(s)

	return s
}

// SetServing flips the health status reported for the whole server and the
// auth service.
func (r *Router) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	r.health.SetServingStatus("", st)
	r.health.SetServingStatus(handler.AuthServiceName, st)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) registerAuthRoutes(server *grpc.Server) {
	authHandler := handler.NewAuth(r.authService, r.contextManager, r.logger)
	handler.RegisterAuthServer(server, authHandler)
}

func (r *Router) registerHealth(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, r.health)
	r.SetServing(true)
}
