package main

import (
	"log"

	"palisade/internal/config"
	"palisade/internal/infra/db"
	httpinfra "palisade/internal/infra/http"
	"palisade/internal/infra/logging"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	store, err := db.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}
	if err := store.Migrate(); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	srv := httpinfra.NewServer(cfg, store, logger)
	if err := srv.Run(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
