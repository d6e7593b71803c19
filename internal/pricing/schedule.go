package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"parkspot-backend/internal/domain"
)

// TimeBand names the time-of-day bucket a booking start falls in.
type TimeBand string

const (
	TimeBandStandard TimeBand = "standard"
	TimeBandPeak     TimeBand = "peak"
	TimeBandNight    TimeBand = "night"
)

// HourWindow is the half-open hour interval [From, To). A window with
// From > To wraps past midnight.
type HourWindow struct {
	From int
	To   int
}

func (w HourWindow) Contains(hour int) bool {
	if w.From <= w.To {
		return hour >= w.From && hour < w.To
	}
	return hour >= w.From || hour < w.To
}

// Schedule holds the vehicle and time-of-day multipliers.
type Schedule struct {
	VehicleMultipliers map[domain.VehicleType]decimal.Decimal
	PeakMultiplier     decimal.Decimal
	PeakWindows        []HourWindow
	NightMultiplier    decimal.Decimal
	NightWindows       []HourWindow
}

// DefaultSchedule: motorcycles pay half, 07-09 and 17-19 are peak (x1.5),
// 22-06 is night (x0.8).
func DefaultSchedule() Schedule {
	return Schedule{
		VehicleMultipliers: map[domain.VehicleType]decimal.Decimal{
			domain.VehicleTypeMotorcycle: decimal.RequireFromString("0.5"),
		},
		PeakMultiplier:  decimal.RequireFromString("1.5"),
		PeakWindows:     []HourWindow{{From: 7, To: 9}, {From: 17, To: 19}},
		NightMultiplier: decimal.RequireFromString("0.8"),
		NightWindows:    []HourWindow{{From: 22, To: 6}},
	}
}

func (s Schedule) Validate() error {
	for vehicle, m := range s.VehicleMultipliers {
		if m.IsNegative() {
			return fmt.Errorf("%w: negative multiplier for %s", domain.ErrInvalidFactor, vehicle)
		}
	}
	if s.PeakMultiplier.IsNegative() || s.NightMultiplier.IsNegative() {
		return fmt.Errorf("%w: negative time-of-day multiplier", domain.ErrInvalidFactor)
	}
	for _, w := range append(append([]HourWindow(nil), s.PeakWindows...), s.NightWindows...) {
		if w.From < 0 || w.From > 23 || w.To < 0 || w.To > 24 || w.From == w.To {
			return fmt.Errorf("invalid hour window %02d-%02d", w.From, w.To)
		}
	}
	return nil
}

// VehicleMultiplier returns 1 for vehicle types without an explicit entry.
func (s Schedule) VehicleMultiplier(vehicle domain.VehicleType) decimal.Decimal {
	if m, ok := s.VehicleMultipliers[vehicle]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// TimeMultiplier classifies an hour of day. Peak wins over night if both match.
func (s Schedule) TimeMultiplier(hour int) (decimal.Decimal, TimeBand) {
	for _, w := range s.PeakWindows {
		if w.Contains(hour) {
			return s.PeakMultiplier, TimeBandPeak
		}
	}
	for _, w := range s.NightWindows {
		if w.Contains(hour) {
			return s.NightMultiplier, TimeBandNight
		}
	}
	return decimal.NewFromInt(1), TimeBandStandard
}
