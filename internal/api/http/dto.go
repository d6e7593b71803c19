package http

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/quote"
	"parkspot-backend/internal/service"
)

type UserContextRequest struct {
	Age             *int           `json:"age,omitempty"`
	HasPWDID        *bool          `json:"has_pwd_id,omitempty"`
	UserType        string         `json:"user_type,omitempty"`
	MembershipLevel string         `json:"membership_level,omitempty"`
	TotalBookings   *int           `json:"total_bookings,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

func (u UserContextRequest) toDomain() (domain.UserContext, error) {
	user := domain.UserContext{
		Age:             u.Age,
		HasPWDID:        u.HasPWDID,
		UserType:        u.UserType,
		MembershipLevel: u.MembershipLevel,
		TotalBookings:   u.TotalBookings,
	}
	if len(u.Attributes) > 0 {
		user.Attributes = make(map[string]domain.Value, len(u.Attributes))
		for key, raw := range u.Attributes {
			value, err := domain.ValueFromAny(raw)
			if err != nil {
				return domain.UserContext{}, fmt.Errorf("%w: attribute %q: %v", errBadRequest, key, err)
			}
			user.Attributes[key] = value
		}
	}
	return user, nil
}

type QuoteRequest struct {
	SpotID      string             `json:"spot_id"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	VehicleType string             `json:"vehicle_type"`
	User        UserContextRequest `json:"user"`
}

func (q QuoteRequest) toService() (service.QuoteRequest, error) {
	spotID, err := domain.NewSpotID(q.SpotID)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	window, err := domain.NewTimeRange(q.Start, q.End)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	vehicle, err := domain.ParseVehicleType(q.VehicleType)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	user, err := q.User.toDomain()
	if err != nil {
		return service.QuoteRequest{}, err
	}
	return service.QuoteRequest{SpotID: spotID, Window: window, Vehicle: vehicle, User: user}, nil
}

type AppliedDiscountResponse struct {
	ID          string `json:"id"`
	RuleID      string `json:"rule_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Percentage  string `json:"percentage"`
	Amount      string `json:"amount"`
	IsVATExempt bool   `json:"is_vat_exempt"`
}

type VATResponse struct {
	NetAmount        string   `json:"net_amount"`
	VATAmount        string   `json:"vat_amount"`
	TotalAmount      string   `json:"total_amount"`
	Rate             string   `json:"rate"`
	IsExempt         bool     `json:"is_exempt"`
	ExemptionReasons []string `json:"exemption_reasons,omitempty"`
}

type RateResponse struct {
	BaseRate            string `json:"base_rate"`
	Level               string `json:"level"`
	VehicleMultiplier   string `json:"vehicle_multiplier"`
	TimeMultiplier      string `json:"time_multiplier"`
	TimeBand            string `json:"time_band"`
	EffectiveHourlyRate string `json:"effective_hourly_rate"`
	BillableHours       int64  `json:"billable_hours"`
}

type DisplayResponse struct {
	Locale   string `json:"locale"`
	Base     string `json:"base"`
	Discount string `json:"discount"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`
}

type QuoteResponse struct {
	SpotID         string                    `json:"spot_id"`
	Currency       string                    `json:"currency"`
	BaseAmount     string                    `json:"base_amount"`
	DiscountAmount string                    `json:"discount_amount"`
	VATAmount      string                    `json:"vat_amount"`
	TotalAmount    string                    `json:"total_amount"`
	SavingsAmount  string                    `json:"savings_amount"`
	Discounts      []AppliedDiscountResponse `json:"discounts"`
	VAT            VATResponse               `json:"vat"`
	Rate           RateResponse              `json:"rate"`
	Display        DisplayResponse           `json:"display"`
}

func amount(m domain.Money) string {
	return m.Amount().StringFixed(2)
}

func toQuoteResponse(spotID domain.SpotID, cost *quote.BookingCost, f *DisplayFormatter, tag language.Tag) QuoteResponse {
	discounts := make([]AppliedDiscountResponse, 0, len(cost.Discounts))
	for _, d := range cost.Discounts {
		discounts = append(discounts, AppliedDiscountResponse{
			ID:          d.ID,
			RuleID:      string(d.RuleID),
			Type:        string(d.Type),
			Name:        d.Name,
			Percentage:  d.Percentage.Value().String(),
			Amount:      amount(d.Amount),
			IsVATExempt: d.IsVATExempt,
		})
	}

	vat := cost.Transaction.VAT
	var reasons []string
	for _, d := range vat.ExemptionReasons {
		reasons = append(reasons, string(d.RuleID))
	}

	return QuoteResponse{
		SpotID:         string(spotID),
		Currency:       string(cost.TotalAmount.Currency()),
		BaseAmount:     amount(cost.BaseAmount),
		DiscountAmount: amount(cost.DiscountAmount),
		VATAmount:      amount(cost.VATAmount),
		TotalAmount:    amount(cost.TotalAmount),
		SavingsAmount:  amount(cost.Transaction.SavingsAmount()),
		Discounts:      discounts,
		VAT: VATResponse{
			NetAmount:        amount(vat.NetAmount),
			VATAmount:        amount(vat.VATAmount),
			TotalAmount:      amount(vat.TotalAmount),
			Rate:             vat.VATRate.String(),
			IsExempt:         vat.IsExempt,
			ExemptionReasons: reasons,
		},
		Rate: RateResponse{
			BaseRate:            amount(cost.Rate.BaseRate),
			Level:               string(cost.Rate.Level),
			VehicleMultiplier:   cost.Rate.VehicleMultiplier.String(),
			TimeMultiplier:      cost.Rate.TimeMultiplier.String(),
			TimeBand:            string(cost.Rate.TimeBand),
			EffectiveHourlyRate: cost.Rate.EffectiveHourlyRate.String(),
			BillableHours:       cost.Rate.BillableHours,
		},
		Display: DisplayResponse{
			Locale:   tag.String(),
			Base:     f.Money(tag, cost.BaseAmount),
			Discount: f.Money(tag, cost.DiscountAmount),
			VAT:      f.Money(tag, cost.VATAmount),
			Total:    f.Money(tag, cost.TotalAmount),
		},
	}
}

type ConditionDTO struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

func (c ConditionDTO) toDomain() (domain.DiscountCondition, error) {
	value, err := domain.ValueFromAny(c.Value)
	if err != nil {
		return domain.DiscountCondition{}, fmt.Errorf("%w: condition on %q: %v", errBadRequest, c.Field, err)
	}
	return domain.NewDiscountCondition(c.Field, domain.Operator(c.Operator), value)
}

type RuleRequest struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Percentage  json.Number    `json:"percentage"`
	IsVATExempt bool           `json:"is_vat_exempt"`
	IsActive    *bool          `json:"is_active,omitempty"`
	Conditions  []ConditionDTO `json:"conditions,omitempty"`
}

func (r RuleRequest) toInput() (service.CreateRuleInput, error) {
	pct, err := domain.ParsePercentage(r.Percentage.String())
	if err != nil {
		return service.CreateRuleInput{}, err
	}
	conditions := make([]domain.DiscountCondition, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		cond, err := c.toDomain()
		if err != nil {
			return service.CreateRuleInput{}, err
		}
		conditions = append(conditions, cond)
	}
	input := service.CreateRuleInput{
		Name:        r.Name,
		Type:        domain.DiscountType(r.Type),
		Percentage:  pct,
		IsVATExempt: r.IsVATExempt,
		Conditions:  conditions,
		Inactive:    r.IsActive != nil && !*r.IsActive,
	}
	if r.ID != "" {
		id, err := domain.NewRuleID(r.ID)
		if err != nil {
			return service.CreateRuleInput{}, err
		}
		input.ID = id
	}
	return input, nil
}

// toRule builds an unsaved rule for validation only.
func (r RuleRequest) toRule() (domain.DiscountRule, error) {
	input, err := r.toInput()
	if err != nil {
		return domain.DiscountRule{}, err
	}
	id := input.ID
	if id == "" {
		id = "unsaved"
	}
	return domain.NewDiscountRule(id, input.Name, input.Type, input.Percentage, input.IsVATExempt, input.Conditions)
}

type RuleResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Percentage  string         `json:"percentage"`
	IsVATExempt bool           `json:"is_vat_exempt"`
	IsActive    bool           `json:"is_active"`
	Conditions  []ConditionDTO `json:"conditions"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

func toRuleResponse(rule domain.DiscountRule) RuleResponse {
	conditions := make([]ConditionDTO, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		conditions = append(conditions, ConditionDTO{Field: c.Field, Operator: string(c.Operator), Value: c.Value.Any()})
	}
	return RuleResponse{
		ID:          string(rule.ID),
		Name:        rule.Name,
		Type:        string(rule.Type),
		Percentage:  rule.Percentage.Value().String(),
		IsVATExempt: rule.IsVATExempt,
		IsActive:    rule.IsActive,
		Conditions:  conditions,
		CreatedAt:   rule.CreatedAt,
		UpdatedAt:   rule.UpdatedAt,
	}
}

type IssueResponse struct {
	RuleID         string `json:"rule_id"`
	ConditionIndex int    `json:"condition_index"`
	Field          string `json:"field"`
	Message        string `json:"message"`
}

func toIssueResponses(issues []discount.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for _, i := range issues {
		out = append(out, IssueResponse{
			RuleID:         string(i.RuleID),
			ConditionIndex: i.ConditionIndex,
			Field:          i.Field,
			Message:        i.Message,
		})
	}
	return out
}

type PercentageRequest struct {
	Percentage json.Number `json:"percentage"`
}

type VATExemptionRequest struct {
	IsVATExempt *bool `json:"is_vat_exempt"`
}

type RefreshResponse struct {
	Loaded   int             `json:"loaded"`
	Issues   []IssueResponse `json:"issues"`
	Rejected []string        `json:"rejected"`
}
