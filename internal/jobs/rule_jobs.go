package jobs

import (
	"context"
	"fmt"

	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
)

// RefreshResult summarises one rule refresh.
type RefreshResult struct {
	Loaded   int
	Issues   []discount.Issue
	Rejected []domain.RuleID
}

// RefreshDiscountRules is the cron entry point for RefreshDiscountRulesNow.
func (jr *JobRunner) RefreshDiscountRules() {
	jr.runWithRecovery("RefreshDiscountRules", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
		defer cancel()

		if _, err := jr.RefreshDiscountRulesNow(ctx); err != nil {
			logger.Error("Failed to refresh discount rules", "error", err)
		}
	})
}

// RefreshDiscountRulesNow loads every stored rule, validates it and swaps
// the set into the engine in one step. With strict validation, rules with
// issues are left out; otherwise they load with a warning. A failed refresh
// leaves the previous rule set in place.
func (jr *JobRunner) RefreshDiscountRulesNow(ctx context.Context) (*RefreshResult, error) {
	jr.refreshMu.Lock()
	defer jr.refreshMu.Unlock()

	rules, err := jr.ruleRepo.List(ctx)
	if err != nil {
		return nil, jr.refreshFailed(fmt.Errorf("failed to list discount rules: %w", err))
	}

	strict := jr.config != nil && jr.config.Rules.StrictValidation
	result := &RefreshResult{}
	accepted := make([]domain.DiscountRule, 0, len(rules))
	for _, rule := range rules {
		issues := discount.ValidateRule(rule)
		for _, issue := range issues {
			logger.Warn("Discount rule validation issue",
				"rule_id", issue.RuleID,
				"condition", issue.ConditionIndex,
				"field", issue.Field,
				"issue", issue.Message,
				"strict", strict)
		}
		result.Issues = append(result.Issues, issues...)

		if strict && len(issues) > 0 {
			result.Rejected = append(result.Rejected, rule.ID)
			continue
		}
		accepted = append(accepted, rule)
	}

	if err := jr.engine.ReplaceRules(accepted); err != nil {
		return nil, jr.refreshFailed(fmt.Errorf("failed to load discount rules: %w", err))
	}
	result.Loaded = len(accepted)

	jr.metrics.RecordRefresh(result.Loaded, len(result.Issues), nil)
	jr.health.SetRulesReady(true)
	logger.Info("Discount rules refreshed",
		"loaded", result.Loaded,
		"issues", len(result.Issues),
		"rejected", len(result.Rejected))
	return result, nil
}

func (jr *JobRunner) refreshFailed(err error) error {
	jr.metrics.RecordRefresh(0, 0, err)
	jr.health.SetRulesReady(false)
	return err
}
