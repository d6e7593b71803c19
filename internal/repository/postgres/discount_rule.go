package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/repository"
)

type discountRuleRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDiscountRuleRepository(db *sql.DB) repository.DiscountRuleRepository {
	return &discountRuleRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const ruleColumns = `id, name, type, percentage, is_vat_exempt, is_active, created_at, updated_at`

func (r *discountRuleRepository) List(ctx context.Context) ([]domain.DiscountRule, error) {
	logger.EnterMethod("discountRuleRepository.List")

	query := `SELECT ` + ruleColumns + ` FROM discount_rules ORDER BY created_at, id`
	logger.StoreCall("postgres", "select", "discount_rules")
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.ExitMethodWithError("discountRuleRepository.List", err)
		return nil, err
	}
	defer rows.Close()

	var rules []domain.DiscountRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.StoreResult("postgres", "select", "discount_rules", int64(len(rules)), nil)

	if err := r.attachConditions(ctx, rules); err != nil {
		logger.ExitMethodWithError("discountRuleRepository.List", err)
		return nil, err
	}

	logger.ExitMethod("discountRuleRepository.List", "count", len(rules))
	return rules, nil
}

func (r *discountRuleRepository) GetByID(ctx context.Context, id domain.RuleID) (*domain.DiscountRule, error) {
	logger.EnterMethod("discountRuleRepository.GetByID", "ruleID", id)

	query := `SELECT ` + ruleColumns + ` FROM discount_rules WHERE id = $1`
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %s", repository.ErrNotFound, id)
	}
	if err != nil {
		logger.ExitMethodWithError("discountRuleRepository.GetByID", err, "ruleID", id)
		return nil, err
	}

	rules := []domain.DiscountRule{rule}
	if err := r.attachConditions(ctx, rules); err != nil {
		logger.ExitMethodWithError("discountRuleRepository.GetByID", err, "ruleID", id)
		return nil, err
	}

	logger.ExitMethod("discountRuleRepository.GetByID", "ruleID", id)
	return &rules[0], nil
}

func (r *discountRuleRepository) Create(ctx context.Context, rule *domain.DiscountRule) error {
	logger.EnterMethod("discountRuleRepository.Create", "ruleID", rule.ID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := r.now()
	query := `INSERT INTO discount_rules (` + ruleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = tx.ExecContext(ctx, query,
		string(rule.ID), rule.Name, string(rule.Type), rule.Percentage.Value(),
		rule.IsVATExempt, rule.IsActive, now, now,
	)
	if isUniqueViolation(err) {
		logger.ExitMethodWithError("discountRuleRepository.Create", err, "ruleID", rule.ID)
		return fmt.Errorf("%w: rule %s", repository.ErrDuplicate, rule.ID)
	}
	if err != nil {
		logger.ExitMethodWithError("discountRuleRepository.Create", err, "ruleID", rule.ID)
		return err
	}

	if err := insertConditions(ctx, tx, rule); err != nil {
		logger.ExitMethodWithError("discountRuleRepository.Create", err, "ruleID", rule.ID)
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	rule.CreatedAt, rule.UpdatedAt = now, now
	logger.ExitMethod("discountRuleRepository.Create", "ruleID", rule.ID)
	return nil
}

// Update overwrites the rule row and replaces its conditions.
func (r *discountRuleRepository) Update(ctx context.Context, rule *domain.DiscountRule) error {
	logger.EnterMethod("discountRuleRepository.Update", "ruleID", rule.ID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := r.now()
	query := `UPDATE discount_rules SET name = $1, type = $2, percentage = $3, is_vat_exempt = $4, is_active = $5, updated_at = $6 WHERE id = $7`
	result, err := tx.ExecContext(ctx, query,
		rule.Name, string(rule.Type), rule.Percentage.Value(), rule.IsVATExempt, rule.IsActive, now, string(rule.ID),
	)
	if err != nil {
		logger.ExitMethodWithError("discountRuleRepository.Update", err, "ruleID", rule.ID)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", repository.ErrNotFound, rule.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM discount_rule_conditions WHERE rule_id = $1`, string(rule.ID)); err != nil {
		logger.ExitMethodWithError("discountRuleRepository.Update", err, "ruleID", rule.ID)
		return err
	}
	if err := insertConditions(ctx, tx, rule); err != nil {
		logger.ExitMethodWithError("discountRuleRepository.Update", err, "ruleID", rule.ID)
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	rule.UpdatedAt = now
	logger.ExitMethod("discountRuleRepository.Update", "ruleID", rule.ID)
	return nil
}

func (r *discountRuleRepository) Delete(ctx context.Context, id domain.RuleID) error {
	logger.EnterMethod("discountRuleRepository.Delete", "ruleID", id)

	logger.StoreCall("postgres", "delete", "discount_rules", "ruleID", id)
	result, err := r.db.ExecContext(ctx, `DELETE FROM discount_rules WHERE id = $1`, string(id))
	if err != nil {
		logger.StoreResult("postgres", "delete", "discount_rules", 0, err)
		return err
	}
	affected, err := result.RowsAffected()
	logger.StoreResult("postgres", "delete", "discount_rules", affected, err)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", repository.ErrNotFound, id)
	}

	logger.ExitMethod("discountRuleRepository.Delete", "ruleID", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (domain.DiscountRule, error) {
	var (
		rule       domain.DiscountRule
		id, typ    string
		percentage decimal.Decimal
	)
	if err := row.Scan(&id, &rule.Name, &typ, &percentage, &rule.IsVATExempt, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return domain.DiscountRule{}, err
	}
	pct, err := domain.NewPercentage(percentage)
	if err != nil {
		return domain.DiscountRule{}, fmt.Errorf("rule %s: %w", id, err)
	}
	rule.ID = domain.RuleID(id)
	rule.Type = domain.DiscountType(typ)
	rule.Percentage = pct
	return rule, nil
}

// attachConditions loads the conditions of every rule in one query.
func (r *discountRuleRepository) attachConditions(ctx context.Context, rules []domain.DiscountRule) error {
	if len(rules) == 0 {
		return nil
	}
	ids := make([]string, len(rules))
	index := make(map[domain.RuleID]int, len(rules))
	for i, rule := range rules {
		ids[i] = string(rule.ID)
		index[rule.ID] = i
	}

	query := `SELECT rule_id, field, operator, value FROM discount_rule_conditions WHERE rule_id = ANY($1) ORDER BY rule_id, position`
	logger.StoreCall("postgres", "select", "discount_rule_conditions", "rules", len(ids))
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		logger.StoreResult("postgres", "select", "discount_rule_conditions", 0, err)
		return err
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var (
			ruleID, field, op string
			raw               []byte
		)
		if err := rows.Scan(&ruleID, &field, &op, &raw); err != nil {
			return err
		}
		value, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("rule %s: %w", ruleID, err)
		}
		i, ok := index[domain.RuleID(ruleID)]
		if !ok {
			continue
		}
		rules[i].Conditions = append(rules[i].Conditions, domain.DiscountCondition{
			Field:    field,
			Operator: domain.Operator(op),
			Value:    value,
		})
		count++
	}
	logger.StoreResult("postgres", "select", "discount_rule_conditions", count, rows.Err())
	return rows.Err()
}

func insertConditions(ctx context.Context, tx *sql.Tx, rule *domain.DiscountRule) error {
	query := `INSERT INTO discount_rule_conditions (rule_id, position, field, operator, value) VALUES ($1, $2, $3, $4, $5)`
	for i, c := range rule.Conditions {
		raw, err := encodeValue(c.Value)
		if err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, query, string(rule.ID), i, c.Field, string(c.Operator), raw); err != nil {
			return err
		}
	}
	return nil
}
