package db

import (
	"context"
	"errors"
	"fmt"

	"palisade/internal/config"
	"palisade/internal/domain"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config, log *zap.Logger) (*Store, error) {
	if cfg.PostgresDSN == "" {
		if log != nil {
			log.Info("POSTGRES_DSN not set; starting with in-memory stores")
		}
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

// Migrate creates or updates the schema for the models owned by this
// service.
func (s *Store) Migrate() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.AutoMigrate(&ProductModel{}, &AuditEntryModel{})
}

// Ping reports store reachability for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errDBUnavailable
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var errDBUnavailable = fmt.Errorf("%w: db not configured", domain.ErrStoreUnavailable)

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
