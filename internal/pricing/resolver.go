package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parkspot-backend/internal/domain"
)

var ErrMissingBaseRate = errors.New("pricing: location has no base rate")

// RateQuote is the detailed outcome of resolving a booking's base amount.
type RateQuote struct {
	BaseRate            domain.Money
	Level               domain.PricingLevel
	VehicleMultiplier   decimal.Decimal
	TimeMultiplier      decimal.Decimal
	TimeBand            TimeBand
	EffectiveHourlyRate decimal.Decimal
	BillableHours       int64
	BaseAmount          domain.Money
}

type Resolver struct {
	location *time.Location
	schedule Schedule
}

type Option func(*Resolver)

// WithLocation sets the zone the booking start hour is read in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.location = loc
		}
	}
}

func WithSchedule(s Schedule) Option {
	return func(r *Resolver) { r.schedule = s }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{location: time.UTC, schedule: DefaultSchedule()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EffectiveBaseRate returns the nearest defined rate walking spot, zone,
// section, then location.
func (r *Resolver) EffectiveBaseRate(chain domain.PricingChain) (domain.Money, domain.PricingLevel, error) {
	if !chain.Location.HasRate() {
		return domain.Money{}, "", ErrMissingBaseRate
	}
	if err := chain.Validate(); err != nil {
		return domain.Money{}, "", err
	}
	switch {
	case chain.Spot.HasRate():
		return *chain.Spot.HourlyRate, domain.PricingLevelSpot, nil
	case chain.Zone.HasRate():
		return *chain.Zone.HourlyRate, domain.PricingLevelZone, nil
	case chain.Section.HasRate():
		return *chain.Section.HourlyRate, domain.PricingLevelSection, nil
	default:
		return *chain.Location.HourlyRate, domain.PricingLevelLocation, nil
	}
}

// Resolve computes the base amount for a booking: effective hourly rate times
// the duration rounded up to whole hours, rounded to the cent once at the end.
func (r *Resolver) Resolve(chain domain.PricingChain, window domain.TimeRange, vehicle domain.VehicleType) (RateQuote, error) {
	baseRate, level, err := r.EffectiveBaseRate(chain)
	if err != nil {
		return RateQuote{}, err
	}

	vehicleMultiplier := r.schedule.VehicleMultiplier(vehicle)
	timeMultiplier, band := r.schedule.TimeMultiplier(window.Start().In(r.location).Hour())
	effective := baseRate.Amount().Mul(vehicleMultiplier).Mul(timeMultiplier)

	hours := window.BillableHours()
	amount, err := baseRate.Multiply(vehicleMultiplier.Mul(timeMultiplier).Mul(decimal.NewFromInt(hours)))
	if err != nil {
		return RateQuote{}, fmt.Errorf("failed to compute base amount: %w", err)
	}

	return RateQuote{
		BaseRate:            baseRate,
		Level:               level,
		VehicleMultiplier:   vehicleMultiplier,
		TimeMultiplier:      timeMultiplier,
		TimeBand:            band,
		EffectiveHourlyRate: effective,
		BillableHours:       hours,
		BaseAmount:          amount,
	}, nil
}

func (r *Resolver) ResolveBaseAmount(chain domain.PricingChain, window domain.TimeRange, vehicle domain.VehicleType) (domain.Money, error) {
	q, err := r.Resolve(chain, window, vehicle)
	if err != nil {
		return domain.Money{}, err
	}
	return q.BaseAmount, nil
}
