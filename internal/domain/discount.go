package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Operator string

const (
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "not_equals"
	OperatorGreaterThan        Operator = "greater_than"
	OperatorGreaterThanOrEqual Operator = "greater_than_or_equal"
	OperatorLessThan           Operator = "less_than"
	OperatorLessThanOrEqual    Operator = "less_than_or_equal"
	OperatorContains           Operator = "contains"
	OperatorNotContains        Operator = "not_contains"
)

var knownOperators = map[Operator]struct{}{
	OperatorEquals: {}, OperatorNotEquals: {},
	OperatorGreaterThan: {}, OperatorGreaterThanOrEqual: {},
	OperatorLessThan: {}, OperatorLessThanOrEqual: {},
	OperatorContains: {}, OperatorNotContains: {},
}

func (o Operator) IsKnown() bool {
	_, ok := knownOperators[o]
	return ok
}

type DiscountType string

const (
	DiscountTypeSeniorCitizen DiscountType = "senior_citizen"
	DiscountTypePWD           DiscountType = "pwd"
	DiscountTypeStudent       DiscountType = "student"
	DiscountTypeLoyalty       DiscountType = "loyalty"
	DiscountTypePromotional   DiscountType = "promotional"
	DiscountTypeCorporate     DiscountType = "corporate"
	DiscountTypeCustom        DiscountType = "custom"
)

// DiscountCondition compares the user-context attribute at Field with Value.
// Operators outside the known set are kept as-is and evaluate to false.
type DiscountCondition struct {
	Field    string
	Operator Operator
	Value    Value
}

func NewDiscountCondition(field string, op Operator, value Value) (DiscountCondition, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return DiscountCondition{}, fmt.Errorf("%w: condition field is required", ErrInvalidRule)
	}
	if !value.IsValid() {
		return DiscountCondition{}, fmt.Errorf("%w: condition on %q has no value", ErrInvalidRule, field)
	}
	return DiscountCondition{Field: field, Operator: op, Value: value}, nil
}

// DiscountRule is a long-lived rule held by the discount engine. All
// conditions must hold for the rule to apply.
type DiscountRule struct {
	ID          RuleID
	Name        string
	Type        DiscountType
	Percentage  Percentage
	IsVATExempt bool
	Conditions  []DiscountCondition
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewDiscountRule(id RuleID, name string, discountType DiscountType, pct Percentage, vatExempt bool, conditions []DiscountCondition) (DiscountRule, error) {
	rule := DiscountRule{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Type:        discountType,
		Percentage:  pct,
		IsVATExempt: vatExempt,
		Conditions:  append([]DiscountCondition(nil), conditions...),
		IsActive:    true,
	}
	if err := rule.Validate(); err != nil {
		return DiscountRule{}, err
	}
	return rule, nil
}

// Validate checks structural invariants. Operator and field vocabulary checks
// live with the engine.
func (r DiscountRule) Validate() error {
	if _, err := NewRuleID(string(r.ID)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: rule %s has no name", ErrInvalidRule, r.ID)
	}
	if r.Type == "" {
		return fmt.Errorf("%w: rule %s has no type", ErrInvalidRule, r.ID)
	}
	if _, err := NewPercentage(r.Percentage.Value()); err != nil {
		return fmt.Errorf("%w: rule %s: %v", ErrInvalidRule, r.ID, err)
	}
	for i, c := range r.Conditions {
		if strings.TrimSpace(c.Field) == "" || !c.Value.IsValid() {
			return fmt.Errorf("%w: rule %s condition %d is incomplete", ErrInvalidRule, r.ID, i)
		}
	}
	return nil
}

func (r *DiscountRule) Activate()   { r.IsActive = true }
func (r *DiscountRule) Deactivate() { r.IsActive = false }

func (r *DiscountRule) UpdatePercentage(pct Percentage) { r.Percentage = pct }

func (r *DiscountRule) UpdateVATExemption(exempt bool) { r.IsVATExempt = exempt }

func (r *DiscountRule) AddCondition(c DiscountCondition) error {
	if strings.TrimSpace(c.Field) == "" || !c.Value.IsValid() {
		return fmt.Errorf("%w: condition is incomplete", ErrInvalidRule)
	}
	r.Conditions = append(r.Conditions, c)
	return nil
}

// RemoveCondition drops the condition at the zero-based index.
func (r *DiscountRule) RemoveCondition(index int) error {
	if index < 0 || index >= len(r.Conditions) {
		return fmt.Errorf("%w: %d (rule has %d)", ErrConditionIndex, index, len(r.Conditions))
	}
	conditions := make([]DiscountCondition, 0, len(r.Conditions)-1)
	conditions = append(conditions, r.Conditions[:index]...)
	r.Conditions = append(conditions, r.Conditions[index+1:]...)
	return nil
}

// Clone returns a copy that shares no slices with r.
func (r DiscountRule) Clone() DiscountRule {
	r.Conditions = append([]DiscountCondition(nil), r.Conditions...)
	return r
}

var appliedDiscountNamespace = uuid.MustParse("5b0f3c1e-8a2d-4c59-9e61-3f7b2d4a9c10")

// AppliedDiscount is the effect of one rule on one amount.
type AppliedDiscount struct {
	ID          string
	RuleID      RuleID
	Type        DiscountType
	Name        string
	Percentage  Percentage
	Amount      Money
	IsVATExempt bool
	AppliedAt   time.Time
}

// NewAppliedDiscount computes rule.Percentage of base. The id is a name-based
// UUID of the rule id and the calculation time, so repeated calculations at
// the same instant agree.
func NewAppliedDiscount(rule DiscountRule, base Money, appliedAt time.Time) AppliedDiscount {
	name := string(rule.ID) + "|" + appliedAt.UTC().Format(time.RFC3339Nano)
	return AppliedDiscount{
		ID:          uuid.NewSHA1(appliedDiscountNamespace, []byte(name)).String(),
		RuleID:      rule.ID,
		Type:        rule.Type,
		Name:        rule.Name,
		Percentage:  rule.Percentage,
		Amount:      rule.Percentage.Apply(base),
		IsVATExempt: rule.IsVATExempt,
		AppliedAt:   appliedAt,
	}
}
