package yamlfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/repository"
)

type ruleFile struct {
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Percentage string         `yaml:"percentage"`
	VATExempt  bool           `yaml:"vat_exempt"`
	Active     *bool          `yaml:"active,omitempty"`
	Conditions []conditionDoc `yaml:"conditions,omitempty"`
}

type conditionDoc struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

// DecodeRules parses a rules document. Rules without an explicit active flag
// are active.
func DecodeRules(data []byte) ([]domain.DiscountRule, error) {
	var doc ruleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	rules := make([]domain.DiscountRule, 0, len(doc.Rules))
	for i, d := range doc.Rules {
		rule, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, d.ID, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// EncodeRules renders rules in the format DecodeRules reads.
func EncodeRules(rules []domain.DiscountRule) ([]byte, error) {
	doc := ruleFile{Rules: make([]ruleDoc, 0, len(rules))}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, fromDomain(r))
	}
	return yaml.Marshal(doc)
}

func (d ruleDoc) toDomain() (domain.DiscountRule, error) {
	id, err := domain.NewRuleID(d.ID)
	if err != nil {
		return domain.DiscountRule{}, err
	}
	pct, err := domain.ParsePercentage(d.Percentage)
	if err != nil {
		return domain.DiscountRule{}, err
	}
	conditions := make([]domain.DiscountCondition, 0, len(d.Conditions))
	for j, c := range d.Conditions {
		value, err := domain.ValueFromAny(c.Value)
		if err != nil {
			return domain.DiscountRule{}, fmt.Errorf("condition %d: %w", j, err)
		}
		cond, err := domain.NewDiscountCondition(c.Field, domain.Operator(c.Operator), value)
		if err != nil {
			return domain.DiscountRule{}, fmt.Errorf("condition %d: %w", j, err)
		}
		conditions = append(conditions, cond)
	}
	rule, err := domain.NewDiscountRule(id, d.Name, domain.DiscountType(d.Type), pct, d.VATExempt, conditions)
	if err != nil {
		return domain.DiscountRule{}, err
	}
	if d.Active != nil && !*d.Active {
		rule.Deactivate()
	}
	return rule, nil
}

func fromDomain(r domain.DiscountRule) ruleDoc {
	active := r.IsActive
	doc := ruleDoc{
		ID:         string(r.ID),
		Name:       r.Name,
		Type:       string(r.Type),
		Percentage: r.Percentage.Value().String(),
		VATExempt:  r.IsVATExempt,
		Active:     &active,
	}
	for _, c := range r.Conditions {
		doc.Conditions = append(doc.Conditions, conditionDoc{
			Field:    c.Field,
			Operator: string(c.Operator),
			Value:    c.Value.Any(),
		})
	}
	return doc
}

// RuleStore keeps discount rules in a YAML file. Every write rewrites the
// whole file.
type RuleStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewRuleStore(path string) *RuleStore {
	return &RuleStore{path: path, now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.DiscountRuleRepository = (*RuleStore)(nil)

func (s *RuleStore) List(ctx context.Context) ([]domain.DiscountRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *RuleStore) GetByID(ctx context.Context, id domain.RuleID) (*domain.DiscountRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if rules[i].ID == id {
			return &rules[i], nil
		}
	}
	return nil, fmt.Errorf("%w: rule %s", repository.ErrNotFound, id)
}

func (s *RuleStore) Create(ctx context.Context, rule *domain.DiscountRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range rules {
		if existing.ID == rule.ID {
			return fmt.Errorf("%w: rule %s", repository.ErrDuplicate, rule.ID)
		}
	}
	now := s.now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	return s.save(append(rules, rule.Clone()))
}

func (s *RuleStore) Update(ctx context.Context, rule *domain.DiscountRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return err
	}
	for i := range rules {
		if rules[i].ID == rule.ID {
			rule.UpdatedAt = s.now()
			rules[i] = rule.Clone()
			return s.save(rules)
		}
	}
	return fmt.Errorf("%w: rule %s", repository.ErrNotFound, rule.ID)
}

func (s *RuleStore) Delete(ctx context.Context, id domain.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, err := s.load()
	if err != nil {
		return err
	}
	for i := range rules {
		if rules[i].ID == id {
			return s.save(append(rules[:i], rules[i+1:]...))
		}
	}
	return fmt.Errorf("%w: rule %s", repository.ErrNotFound, id)
}

// load treats a missing file as an empty rule set.
func (s *RuleStore) load() ([]domain.DiscountRule, error) {
	logger.StoreCall("file", "read", s.path)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return DecodeRules(data)
}

func (s *RuleStore) save(rules []domain.DiscountRule) error {
	data, err := EncodeRules(rules)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rules-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	logger.StoreResult("file", "write", s.path, int64(len(rules)), nil)
	return nil
}
