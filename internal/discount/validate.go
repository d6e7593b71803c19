package discount

import (
	"fmt"
	"strings"

	"parkspot-backend/internal/domain"
)

// Issue describes a rule condition that can never behave as its author intended.
type Issue struct {
	RuleID         domain.RuleID
	ConditionIndex int
	Field          string
	Message        string
}

func (i Issue) String() string {
	return fmt.Sprintf("rule %s condition %d (%s): %s", i.RuleID, i.ConditionIndex, i.Field, i.Message)
}

// ValidateRule lists configuration problems the evaluator would otherwise
// silently treat as false.
func ValidateRule(rule domain.DiscountRule) []Issue {
	var issues []Issue
	add := func(i int, c domain.DiscountCondition, format string, args ...any) {
		issues = append(issues, Issue{
			RuleID:         rule.ID,
			ConditionIndex: i,
			Field:          c.Field,
			Message:        fmt.Sprintf(format, args...),
		})
	}

	for i, c := range rule.Conditions {
		if !c.Operator.IsKnown() {
			add(i, c, "unknown operator %q", c.Operator)
			continue
		}

		if _, ok := splitPath(c.Field); !ok {
			add(i, c, "malformed field path")
			continue
		}

		if !IsBuiltinField(c.Field) {
			for name := range accessors {
				if strings.EqualFold(string(name), c.Field) {
					add(i, c, "unknown field, did you mean %q", name)
				}
			}
		}

		switch c.Operator {
		case domain.OperatorGreaterThan, domain.OperatorGreaterThanOrEqual,
			domain.OperatorLessThan, domain.OperatorLessThanOrEqual:
			if c.Value.Kind() != domain.KindNumber {
				add(i, c, "operator %s needs a number, got %s", c.Operator, c.Value.Kind())
			}
		case domain.OperatorContains, domain.OperatorNotContains:
			if c.Value.Kind() != domain.KindString {
				add(i, c, "operator %s needs a string, got %s", c.Operator, c.Value.Kind())
			}
		}

		if kind, ok := fieldKinds[Field(c.Field)]; ok && c.Value.IsValid() && c.Value.Kind() != kind {
			add(i, c, "field %s is a %s, compared with a %s", c.Field, kind, c.Value.Kind())
		}
	}
	return issues
}
