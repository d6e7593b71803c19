package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"

	"github.com/lib/pq"

	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/repository"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
	repository.PricingRepository
	repository.DiscountRuleRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		PricingRepository:      NewPricingRepository(db),
		DiscountRuleRepository: NewDiscountRuleRepository(db),
	}
}

// Migrate creates any missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	logger.StoreCall("postgres", "migrate", "schema.sql")
	_, err := s.db.ExecContext(ctx, schema)
	logger.StoreResult("postgres", "migrate", "schema.sql", 0, err)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
