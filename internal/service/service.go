package service

import (
	"context"
	"fmt"
	"strings"

	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/quote"
)

// QuoteRequest is one booking the caller wants priced.
type QuoteRequest struct {
	SpotID  domain.SpotID
	Window  domain.TimeRange
	Vehicle domain.VehicleType
	User    domain.UserContext
}

// CreateRuleInput describes a new discount rule. An empty ID is assigned.
type CreateRuleInput struct {
	ID          domain.RuleID
	Name        string
	Type        domain.DiscountType
	Percentage  domain.Percentage
	IsVATExempt bool
	Conditions  []domain.DiscountCondition
	Inactive    bool
}

// RuleValidationError carries the issues that made a rule unacceptable.
type RuleValidationError struct {
	Issues []discount.Issue
}

func (e *RuleValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.String())
	}
	return fmt.Sprintf("%v: %s", domain.ErrInvalidRule, strings.Join(msgs, "; "))
}

func (e *RuleValidationError) Unwrap() error { return domain.ErrInvalidRule }

type QuoteService interface {
	Quote(ctx context.Context, req QuoteRequest) (*quote.BookingCost, error)
}

type RuleService interface {
	ListRules(ctx context.Context) ([]domain.DiscountRule, error)
	GetRule(ctx context.Context, id domain.RuleID) (*domain.DiscountRule, error)
	CreateRule(ctx context.Context, input CreateRuleInput) (*domain.DiscountRule, error)
	DeleteRule(ctx context.Context, id domain.RuleID) error
	SetActive(ctx context.Context, id domain.RuleID, active bool) (*domain.DiscountRule, error)
	UpdatePercentage(ctx context.Context, id domain.RuleID, pct domain.Percentage) (*domain.DiscountRule, error)
	UpdateVATExemption(ctx context.Context, id domain.RuleID, exempt bool) (*domain.DiscountRule, error)
	AddCondition(ctx context.Context, id domain.RuleID, cond domain.DiscountCondition) (*domain.DiscountRule, error)
	RemoveCondition(ctx context.Context, id domain.RuleID, index int) (*domain.DiscountRule, error)
	ValidateRule(rule domain.DiscountRule) []discount.Issue
}
