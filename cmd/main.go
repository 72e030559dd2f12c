package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	grpcctx "github.com/dtroode/tokenkeeper/internal/api/grpc/context"
	"github.com/dtroode/tokenkeeper/internal/api/grpc/router"
	grpcServer "github.com/dtroode/tokenkeeper/internal/api/grpc/server"
	"github.com/dtroode/tokenkeeper/internal/config"
	"github.com/dtroode/tokenkeeper/internal/cryptox"
	"github.com/dtroode/tokenkeeper/internal/identity"
	"github.com/dtroode/tokenkeeper/internal/keys"
	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
	"github.com/dtroode/tokenkeeper/internal/repository/postgres"
	"github.com/dtroode/tokenkeeper/internal/repository/redis"
	"github.com/dtroode/tokenkeeper/internal/server"
	"github.com/dtroode/tokenkeeper/internal/service"
	storage "github.com/dtroode/tokenkeeper/internal/storage/minio"
	"github.com/dtroode/tokenkeeper/internal/token"
	"github.com/dtroode/tokenkeeper/internal/tracing"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const (
	storeRetries   = 2
	healthInterval = 10 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize user directory", "error", err)
	}
	defer db.Close()
	userRepo := postgres.NewUserRepository(db.DB)

	rdb, err := redis.NewConnection(ctx, redis.ConnectionConfig{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialize session store", "error", err)
	}
	defer rdb.Close()

	sessionStore, err := newSessionStore(cfg, rdb)
	if err != nil {
		logger.Fatal("failed to create session store", "error", err)
	}

	keySource, err := newKeySource(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize key source", "error", err)
	}
	signer, err := keys.LoadSigner(ctx, keySource, keys.SignerParams{
		Algorithm:      cfg.JWT.Algorithm,
		PrivateKeyName: cfg.JWT.PrivateKeyFile,
		PublicKeyName:  cfg.JWT.PublicKeyFile,
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		ClockSkew:      cfg.JWT.ClockSkew,
	})
	if err != nil {
		logger.Fatal("failed to load signing key", "error", err)
	}
	randomizer := cryptox.NewRandomizer(nil, cfg.Session.MinEntropy, cfg.Session.RandomAttempts)
	codec := token.NewCodec(signer, randomizer, cfg.JWT.AccessTTL)

	provider, err := identity.NewOAuthProvider(identity.OAuthConfig{
		ClientID:             cfg.IDP.ClientID,
		ClientSecret:         cfg.IDP.ClientSecret,
		AuthURL:              cfg.IDP.AuthURL,
		TokenURL:             cfg.IDP.TokenURL,
		UserInfoURL:          cfg.IDP.UserInfoURL,
		Scopes:               cfg.IDP.Scopes,
		Timeout:              cfg.IDP.Timeout,
		RequireVerifiedEmail: cfg.IDP.RequireVerifiedEmail,
		HTTPClient:           tracing.HTTPClient(nil),
	})
	if err != nil {
		logger.Fatal("failed to create identity provider", "error", err)
	}
	exchange := service.NewIdentityExchange(provider, userRepo, model.UserDefaults{Role: cfg.IDP.DefaultRole}, logger)

	failOpen := cfg.Session.ValidationFailurePolicy == config.FailOpen
	if failOpen {
		logger.Warn("access tokens are accepted when the blacklist is unreachable")
	}
	tokenService := service.NewTokenService(exchange, codec, sessionStore, userRepo, service.TokenServiceConfig{
		RefreshTTL:           cfg.Session.RefreshTTL,
		ClockSkew:            cfg.JWT.ClockSkew,
		StoreTimeout:         cfg.Session.StoreTimeout,
		FailOpen:             failOpen,
		RateLimitWindow:      cfg.RateLimit.Window,
		RateLimitMaxAttempts: cfg.RateLimit.MaxAttempts,
	}, logger)

	r := router.New(tokenService, grpcctx.NewManager(), logger)
	grpcServer := grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	var sl model.SecurityLayer
	if cfg.GRPC.EnableHTTPS {
		sl = server.NewTLSListener(cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
	} else {
		logger.Warn("serving without TLS, tokens travel in plaintext")
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(grpcServer)
	go func() {
		defer wg.Done()
		watchDependencies(ctx, r, logger, map[string]pinger{"postgres": db, "redis": rdb})
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")
	r.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := grpcServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", grpcServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func newSessionStore(cfg *config.Config, conn *redis.Connection) (*redis.Store, error) {
	master, err := base64.StdEncoding.DecodeString(cfg.Session.Secret)
	if err != nil {
		return nil, fmt.Errorf("SESSION_SECRET must be base64: %w", err)
	}
	derived, err := cryptox.DeriveKeys(master)
	if err != nil {
		return nil, err
	}
	sealer, err := cryptox.NewSealer(derived.Encryption)
	if err != nil {
		return nil, err
	}

	return redis.NewStore(conn.Client, sealer, cryptox.NewHasher(derived.Hashing), redis.StoreConfig{
		Policy:  cfg.Session.Policy,
		Retries: storeRetries,
	})
}

func newKeySource(ctx context.Context, cfg *config.Config) (model.KeySource, error) {
	if cfg.JWT.Algorithm == cryptox.AlgHS256 {
		return keys.NewFileSource(cfg.Keys.Dir), nil
	}

	switch cfg.Keys.Source {
	case config.KeySourceMinio:
		minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	default:
		return keys.NewFileSource(cfg.Keys.Dir), nil
	}
}

// watchDependencies reports NOT_SERVING through grpc health while any
// backing store fails its ping.
func watchDependencies(ctx context.Context, r *router.Router, logger *logger.Logger, deps map[string]pinger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		healthy := true
		for name, dep := range deps {
			pctx, cancel := context.WithTimeout(ctx, time.Second)
			err := dep.Ping(pctx)
			cancel()
			if err != nil {
				healthy = false
				logger.Warn("dependency health check failed", "dependency", name, "error", err)
			}
		}

		if healthy != serving {
			serving = healthy
			r.SetServing(serving)
			logger.Info("serving status changed", "serving", serving)
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
