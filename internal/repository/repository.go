package repository

import (
	"context"
	"errors"

	"parkspot-backend/internal/domain"
)

var (
	ErrNotFound  = errors.New("repository: not found")
	ErrDuplicate = errors.New("repository: duplicate key")
)

// PricingRepository supplies the location hierarchy a spot's rate is resolved from.
type PricingRepository interface {
	GetSpotHierarchy(ctx context.Context, spotID domain.SpotID) (*domain.SpotHierarchy, error)
}

// DiscountRuleRepository is the external rule store the engine is loaded from.
type DiscountRuleRepository interface {
	List(ctx context.Context) ([]domain.DiscountRule, error)
	GetByID(ctx context.Context, id domain.RuleID) (*domain.DiscountRule, error)
	Create(ctx context.Context, rule *domain.DiscountRule) error
	Update(ctx context.Context, rule *domain.DiscountRule) error
	Delete(ctx context.Context, id domain.RuleID) error
}
