package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"parkspot-backend/internal/config"
	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/metrics"
)

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
	return m.Called(ctx, rule).Error(0)
}
func (m *MockDiscountRuleRepo) Update(ctx context.Context, rule *domain.DiscountRule) error {
	return m.Called(ctx, rule).Error(0)
}
func (m *MockDiscountRuleRepo) Delete(ctx context.Context, id domain.RuleID) error {
	return m.Called(ctx, id).Error(0)
}

type fakeHealth struct {
	ready []bool
}

func (h *fakeHealth) SetRulesReady(ready bool) { h.ready = append(h.ready, ready) }

type panickingLoader struct{}

func (panickingLoader) ReplaceRules([]domain.DiscountRule) error { panic("registry corrupted") }
func (panickingLoader) Len() int                                 { return 0 }

func testRule(t *testing.T, id string, conds ...domain.DiscountCondition) domain.DiscountRule {
	t.Helper()
	pct, err := domain.PercentageFromInt(10)
	require.NoError(t, err)
	r, err := domain.NewDiscountRule(domain.RuleID(id), id, domain.DiscountTypeCustom, pct, false, conds)
	require.NoError(t, err)
	return r
}

func TestRefreshDiscountRulesNow(t *testing.T) {
	typo := domain.DiscountCondition{Field: "AGE", Operator: domain.OperatorGreaterThan, Value: domain.IntValue(60)}

	t.Run("Lenient loads rules with issues", func(t *testing.T) {
		repo := new(MockDiscountRuleRepo)
		engine := discount.NewEngine()
		health := &fakeHealth{}
		m := metrics.New()
		jr := NewJobRunner(repo, engine, health, m, &config.Config{})

		repo.On("List", mock.Anything).Return([]domain.DiscountRule{testRule(t, "a"), testRule(t, "b", typo)}, nil)

		result, err := jr.RefreshDiscountRulesNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Loaded)
		assert.Len(t, result.Issues, 1)
		assert.Empty(t, result.Rejected)
		assert.Equal(t, 2, engine.Len())
		assert.Equal(t, []bool{true}, health.ready)
		assert.Equal(t, float64(2), testutil.ToFloat64(m.RulesLoaded))
	})

	t.Run("Strict rejects rules with issues", func(t *testing.T) {
		repo := new(MockDiscountRuleRepo)
		engine := discount.NewEngine()
		cfg := &config.Config{Rules: config.RulesConfig{StrictValidation: true}}
		jr := NewJobRunner(repo, engine, &fakeHealth{}, metrics.New(), cfg)

		repo.On("List", mock.Anything).Return([]domain.DiscountRule{testRule(t, "a"), testRule(t, "b", typo)}, nil)

		result, err := jr.RefreshDiscountRulesNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Loaded)
		assert.Equal(t, []domain.RuleID{"b"}, result.Rejected)
		_, err = engine.GetRule("b")
		assert.ErrorIs(t, err, discount.ErrRuleNotFound)
	})

	t.Run("Store failure keeps previous rules", func(t *testing.T) {
		repo := new(MockDiscountRuleRepo)
		engine := discount.NewEngine()
		require.NoError(t, engine.AddRule(testRule(t, "existing")))
		health := &fakeHealth{}
		m := metrics.New()
		jr := NewJobRunner(repo, engine, health, m, &config.Config{})

		repo.On("List", mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := jr.RefreshDiscountRulesNow(context.Background())
		assert.Error(t, err)
		assert.Equal(t, 1, engine.Len())
		assert.Equal(t, []bool{false}, health.ready)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RuleRefreshes.WithLabelValues(metrics.OutcomeError)))
	})

	t.Run("Duplicate ids fail the swap", func(t *testing.T) {
		repo := new(MockDiscountRuleRepo)
		engine := discount.NewEngine()
		jr := NewJobRunner(repo, engine, &fakeHealth{}, metrics.New(), &config.Config{})

		repo.On("List", mock.Anything).Return([]domain.DiscountRule{testRule(t, "a"), testRule(t, "a")}, nil)

		_, err := jr.RefreshDiscountRulesNow(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidRule)
		assert.Equal(t, 0, engine.Len())
	})
}

func TestRefreshDiscountRulesRecoversPanic(t *testing.T) {
	repo := new(MockDiscountRuleRepo)
	jr := NewJobRunner(repo, panickingLoader{}, &fakeHealth{}, metrics.New(), &config.Config{})
	repo.On("List", mock.Anything).Return([]domain.DiscountRule{}, nil)

	assert.NotPanics(t, jr.RefreshDiscountRules)
	repo.AssertExpectations(t)
}
