package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/quote"
)

// MockPricingRepo
type MockPricingRepo struct {
	mock.Mock
}

func (m *MockPricingRepo) GetSpotHierarchy(ctx context.Context, spotID domain.SpotID) (*domain.SpotHierarchy, error) {
	args := m.Called(ctx, spotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SpotHierarchy), args.Error(1)
}

// MockDiscountRuleRepo
type MockDiscountRuleRepo struct {
	mock.Mock
}

func (m *MockDiscountRuleRepo) List(ctx context.Context) ([]domain.DiscountRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DiscountRule), args.Error(1)
}
func (m *MockDiscountRuleRepo) GetByID(ctx context.Context, id domain.RuleID) (*domain.DiscountRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DiscountRule), args.Error(1)
}
func (m *MockDiscountRuleRepo) Create(ctx context.Context, rule *domain.DiscountRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}
func (m *MockDiscountRuleRepo) Update(ctx context.Context, rule *domain.DiscountRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}
func (m *MockDiscountRuleRepo) Delete(ctx context.Context, id domain.RuleID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBookingCalculator
type MockBookingCalculator struct {
	mock.Mock
}

func (m *MockBookingCalculator) CalculateBookingCost(chain domain.PricingChain, window domain.TimeRange, vehicle domain.VehicleType, user domain.UserContext) (quote.BookingCost, error) {
	args := m.Called(chain, window, vehicle, user)
	return args.Get(0).(quote.BookingCost), args.Error(1)
}
