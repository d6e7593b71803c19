package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/repository"
)

// RuleRegistry is the in-memory rule set quotes are evaluated against.
type RuleRegistry interface {
	AddRule(rule domain.DiscountRule) error
	RemoveRule(id domain.RuleID) error
	Len() int
}

type ruleService struct {
	ruleRepo repository.DiscountRuleRepository
	registry RuleRegistry
	metrics  *metrics.Metrics
	strict   bool
	now      func() time.Time
	newID    func() string
}

// RuleServiceOption configures NewRuleService.
type RuleServiceOption func(*ruleService)

// WithStrictValidation keeps rules with validation issues out of the
// registry, the same way a strict refresh does. Edits to such rules are
// still stored.
func WithStrictValidation(strict bool) RuleServiceOption {
	return func(s *ruleService) { s.strict = strict }
}

// NewRuleService persists every change first and then publishes it to the
// registry, so the store stays the source of truth.
func NewRuleService(ruleRepo repository.DiscountRuleRepository, registry RuleRegistry, m *metrics.Metrics, opts ...RuleServiceOption) RuleService {
	s := &ruleService{
		ruleRepo: ruleRepo,
		registry: registry,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ruleService) ListRules(ctx context.Context) ([]domain.DiscountRule, error) {
	return s.ruleRepo.List(ctx)
}

func (s *ruleService) GetRule(ctx context.Context, id domain.RuleID) (*domain.DiscountRule, error) {
	return s.ruleRepo.GetByID(ctx, id)
}

func (s *ruleService) ValidateRule(rule domain.DiscountRule) []discount.Issue {
	return discount.ValidateRule(rule)
}

func (s *ruleService) CreateRule(ctx context.Context, input CreateRuleInput) (*domain.DiscountRule, error) {
	logger.EnterMethod("ruleService.CreateRule", "name", input.Name, "type", input.Type)

	id := input.ID
	if id == "" {
		id = domain.RuleID(s.newID())
	}
	rule, err := domain.NewDiscountRule(id, input.Name, input.Type, input.Percentage, input.IsVATExempt, input.Conditions)
	if err != nil {
		logger.ExitMethodWithError("ruleService.CreateRule", err)
		return nil, err
	}
	if input.Inactive {
		rule.Deactivate()
	}
	if issues := discount.ValidateRule(rule); len(issues) > 0 {
		err := &RuleValidationError{Issues: issues}
		logger.ExitMethodWithError("ruleService.CreateRule", err, "ruleID", id)
		return nil, err
	}
	now := s.now()
	rule.CreatedAt, rule.UpdatedAt = now, now

	if err := s.ruleRepo.Create(ctx, &rule); err != nil {
		logger.ExitMethodWithError("ruleService.CreateRule", err, "ruleID", id)
		return nil, err
	}
	if err := s.publish(rule); err != nil {
		logger.ExitMethodWithError("ruleService.CreateRule", err, "ruleID", id)
		return nil, err
	}

	logger.ExitMethod("ruleService.CreateRule", "ruleID", id)
	return &rule, nil
}

func (s *ruleService) DeleteRule(ctx context.Context, id domain.RuleID) error {
	logger.EnterMethod("ruleService.DeleteRule", "ruleID", id)

	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		logger.ExitMethodWithError("ruleService.DeleteRule", err, "ruleID", id)
		return err
	}
	// The registry may not hold the rule yet if it was stored after the last refresh.
	if err := s.registry.RemoveRule(id); err != nil && !errors.Is(err, discount.ErrRuleNotFound) {
		logger.ExitMethodWithError("ruleService.DeleteRule", err, "ruleID", id)
		return err
	}
	s.metrics.SetRulesLoaded(s.registry.Len())

	logger.ExitMethod("ruleService.DeleteRule", "ruleID", id)
	return nil
}

func (s *ruleService) SetActive(ctx context.Context, id domain.RuleID, active bool) (*domain.DiscountRule, error) {
	return s.update(ctx, "ruleService.SetActive", id, func(r *domain.DiscountRule) error {
		if active {
			r.Activate()
		} else {
			r.Deactivate()
		}
		return nil
	})
}

func (s *ruleService) UpdatePercentage(ctx context.Context, id domain.RuleID, pct domain.Percentage) (*domain.DiscountRule, error) {
	return s.update(ctx, "ruleService.UpdatePercentage", id, func(r *domain.DiscountRule) error {
		r.UpdatePercentage(pct)
		return nil
	})
}

func (s *ruleService) UpdateVATExemption(ctx context.Context, id domain.RuleID, exempt bool) (*domain.DiscountRule, error) {
	return s.update(ctx, "ruleService.UpdateVATExemption", id, func(r *domain.DiscountRule) error {
		r.UpdateVATExemption(exempt)
		return nil
	})
}

// AddCondition appends cond. Only the new condition is checked so rules
// loaded with warnings stay editable.
func (s *ruleService) AddCondition(ctx context.Context, id domain.RuleID, cond domain.DiscountCondition) (*domain.DiscountRule, error) {
	return s.update(ctx, "ruleService.AddCondition", id, func(r *domain.DiscountRule) error {
		if err := r.AddCondition(cond); err != nil {
			return err
		}
		added := len(r.Conditions) - 1
		var issues []discount.Issue
		for _, issue := range discount.ValidateRule(*r) {
			if issue.ConditionIndex == added {
				issues = append(issues, issue)
			}
		}
		if len(issues) > 0 {
			return &RuleValidationError{Issues: issues}
		}
		return nil
	})
}

func (s *ruleService) RemoveCondition(ctx context.Context, id domain.RuleID, index int) (*domain.DiscountRule, error) {
	return s.update(ctx, "ruleService.RemoveCondition", id, func(r *domain.DiscountRule) error {
		return r.RemoveCondition(index)
	})
}

func (s *ruleService) update(ctx context.Context, method string, id domain.RuleID, mutate func(*domain.DiscountRule) error) (*domain.DiscountRule, error) {
	logger.EnterMethod(method, "ruleID", id)

	existing, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError(method, err, "ruleID", id)
		return nil, err
	}

	updated := existing.Clone()
	if err := mutate(&updated); err != nil {
		logger.ExitMethodWithError(method, err, "ruleID", id)
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		logger.ExitMethodWithError(method, err, "ruleID", id)
		return nil, err
	}
	updated.UpdatedAt = s.now()

	if err := s.ruleRepo.Update(ctx, &updated); err != nil {
		logger.ExitMethodWithError(method, err, "ruleID", id)
		return nil, err
	}
	if err := s.publish(updated); err != nil {
		logger.ExitMethodWithError(method, err, "ruleID", id)
		return nil, err
	}

	logger.ExitMethod(method, "ruleID", id, "active", updated.IsActive)
	return &updated, nil
}

func (s *ruleService) publish(rule domain.DiscountRule) error {
	if s.strict {
		if issues := discount.ValidateRule(rule); len(issues) > 0 {
			return s.withhold(rule.ID, issues)
		}
	}
	if err := s.registry.AddRule(rule); err != nil {
		return err
	}
	s.metrics.SetRulesLoaded(s.registry.Len())
	return nil
}

// withhold drops a stored rule from the registry until its issues are fixed.
func (s *ruleService) withhold(id domain.RuleID, issues []discount.Issue) error {
	for _, issue := range issues {
		logger.Warn("Discount rule withheld from quotes",
			"rule_id", issue.RuleID,
			"condition", issue.ConditionIndex,
			"field", issue.Field,
			"issue", issue.Message)
	}
	if err := s.registry.RemoveRule(id); err != nil && !errors.Is(err, discount.ErrRuleNotFound) {
		return err
	}
	s.metrics.SetRulesLoaded(s.registry.Len())
	return nil
}
