// Command keygen provisions the access token signing key pair into the
// configured key source.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/tokenkeeper/internal/config"
	"github.com/dtroode/tokenkeeper/internal/keys"
	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
	storage "github.com/dtroode/tokenkeeper/internal/storage/minio"
)

type keyStore interface {
	model.KeySource
	keys.Writer
}

func main() {
	force := flag.Bool("force", false, "overwrite an existing private key")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	var store keyStore
	switch cfg.Keys.Source {
	case config.KeySourceMinio:
		client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to create minio client", "error", err)
		}
		store, err = storage.NewClient(ctx, client, cfg.Storage.Bucket)
		if err != nil {
			logger.Fatal("failed to open key bucket", "error", err)
		}
	default:
		store = keys.NewFileSource(cfg.Keys.Dir)
	}

	_, err = store.Fetch(ctx, cfg.JWT.PrivateKeyFile)
	switch {
	case err == nil && !*force:
		logger.Fatal("private key already exists, pass -force to replace it", "name", cfg.JWT.PrivateKeyFile)
	case err != nil && !errors.Is(err, model.ErrNotFound):
		logger.Fatal("failed to check existing key", "error", err)
	}

	if err := keys.Provision(ctx, store, cfg.JWT.Algorithm, cfg.JWT.PrivateKeyFile, cfg.JWT.PublicKeyFile); err != nil {
		logger.Fatal("failed to provision keys", "error", err)
	}

	logger.Info("signing keys provisioned",
		"algorithm", cfg.JWT.Algorithm,
		"source", cfg.Keys.Source,
		"private", cfg.JWT.PrivateKeyFile,
		"public", cfg.JWT.PublicKeyFile)
}
