package discount

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"parkspot-backend/internal/domain"
)

var ErrRuleNotFound = errors.New("discount: rule not found")

// VATCalculator computes tax for an amount after discounts.
type VATCalculator interface {
	Calculate(amount domain.Money, discounts []domain.AppliedDiscount) (domain.VATCalculation, error)
}

type snapshot struct {
	order []domain.RuleID
	byID  map[domain.RuleID]domain.DiscountRule
}

func (s *snapshot) rules() []domain.DiscountRule {
	out := make([]domain.DiscountRule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		order: append([]domain.RuleID(nil), s.order...),
		byID:  make(map[domain.RuleID]domain.DiscountRule, len(s.byID)),
	}
	for id, rule := range s.byID {
		next.byID[id] = rule
	}
	return next
}

// Engine holds the discount rule registry. Readers work on an immutable
// snapshot; writers are serialized and publish a new snapshot.
type Engine struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	now     func() time.Time
}

type Option func(*Engine)

// WithClock sets the time source stamped on applied discounts.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(&snapshot{byID: map[domain.RuleID]domain.DiscountRule{}})
	return e
}

// AddRule registers a rule. A rule with an existing id replaces the old one
// and keeps its position.
func (e *Engine) AddRule(rule domain.DiscountRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.current.Load().clone()
	if _, exists := next.byID[rule.ID]; !exists {
		next.order = append(next.order, rule.ID)
	}
	next.byID[rule.ID] = rule.Clone()
	e.current.Store(next)
	return nil
}

func (e *Engine) RemoveRule(id domain.RuleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.current.Load()
	if _, ok := cur.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	next := cur.clone()
	delete(next.byID, id)
	for i, existing := range next.order {
		if existing == id {
			next.order = append(next.order[:i], next.order[i+1:]...)
			break
		}
	}
	e.current.Store(next)
	return nil
}

// ReplaceRules swaps the whole registry in one step. Either every rule is
// accepted or the registry is left untouched.
func (e *Engine) ReplaceRules(rules []domain.DiscountRule) error {
	next := &snapshot{
		order: make([]domain.RuleID, 0, len(rules)),
		byID:  make(map[domain.RuleID]domain.DiscountRule, len(rules)),
	}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
		if _, dup := next.byID[rule.ID]; dup {
			return fmt.Errorf("%w: duplicate rule id %s", domain.ErrInvalidRule, rule.ID)
		}
		next.order = append(next.order, rule.ID)
		next.byID[rule.ID] = rule.Clone()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.current.Store(next)
	return nil
}

// UpdateRule applies mutate to a copy of the rule and publishes it if the
// result is still valid.
func (e *Engine) UpdateRule(id domain.RuleID, mutate func(*domain.DiscountRule) error) (domain.DiscountRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.current.Load()
	existing, ok := cur.byID[id]
	if !ok {
		return domain.DiscountRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	updated := existing.Clone()
	if err := mutate(&updated); err != nil {
		return domain.DiscountRule{}, err
	}
	if updated.ID != id {
		return domain.DiscountRule{}, fmt.Errorf("%w: rule id cannot change", domain.ErrInvalidRule)
	}
	if err := updated.Validate(); err != nil {
		return domain.DiscountRule{}, err
	}

	next := cur.clone()
	next.byID[id] = updated
	e.current.Store(next)
	return updated.Clone(), nil
}

func (e *Engine) GetRule(id domain.RuleID) (domain.DiscountRule, error) {
	rule, ok := e.current.Load().byID[id]
	if !ok {
		return domain.DiscountRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return rule.Clone(), nil
}

// Rules returns copies of every registered rule in registry order.
func (e *Engine) Rules() []domain.DiscountRule {
	rules := e.current.Load().rules()
	for i := range rules {
		rules[i] = rules[i].Clone()
	}
	return rules
}

func (e *Engine) Len() int {
	return len(e.current.Load().order)
}

// GetApplicableDiscounts returns active rules whose conditions all hold, in
// registry order.
func (e *Engine) GetApplicableDiscounts(user domain.UserContext) []domain.DiscountRule {
	return applicable(e.current.Load(), user)
}

func applicable(snap *snapshot, user domain.UserContext) []domain.DiscountRule {
	var out []domain.DiscountRule
	for _, rule := range snap.rules() {
		if rule.IsActive && Matches(rule, user) {
			out = append(out, rule.Clone())
		}
	}
	return out
}

// ApplyBestDiscount returns the discount of the rule with the highest
// percentage, or nil when no rule applies. On equal percentages the earlier
// rule wins.
func (e *Engine) ApplyBestDiscount(amount domain.Money, user domain.UserContext) *domain.AppliedDiscount {
	var best *domain.DiscountRule
	for _, rule := range applicable(e.current.Load(), user) {
		if best == nil || rule.Percentage.Value().GreaterThan(best.Percentage.Value()) {
			r := rule
			best = &r
		}
	}
	if best == nil {
		return nil
	}
	applied := domain.NewAppliedDiscount(*best, amount, e.now())
	return &applied
}

// ApplyAllApplicableDiscounts computes every applicable discount against the
// original amount. Discounts do not compound.
func (e *Engine) ApplyAllApplicableDiscounts(amount domain.Money, user domain.UserContext) []domain.AppliedDiscount {
	rules := applicable(e.current.Load(), user)
	appliedAt := e.now()
	out := make([]domain.AppliedDiscount, 0, len(rules))
	for _, rule := range rules {
		out = append(out, domain.NewAppliedDiscount(rule, amount, appliedAt))
	}
	return out
}

func (e *Engine) CalculateTotalWithDiscountsAndVAT(amount domain.Money, user domain.UserContext, vat VATCalculator) (domain.TransactionCalculation, error) {
	discounts := e.ApplyAllApplicableDiscounts(amount, user)
	calc, err := vat.Calculate(amount, discounts)
	if err != nil {
		return domain.TransactionCalculation{}, err
	}
	return domain.NewTransactionCalculation(amount, discounts, calc)
}
