package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot-backend/internal/domain"
)

func rate(t *testing.T, raw string) *domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(raw, domain.CurrencyPHP)
	require.NoError(t, err)
	return &m
}

func window(t *testing.T, start time.Time, d time.Duration) domain.TimeRange {
	t.Helper()
	r, err := domain.NewTimeRange(start, start.Add(d))
	require.NoError(t, err)
	return r
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestEffectiveBaseRate(t *testing.T) {
	r := NewResolver()
	location := domain.PricingConfig{HourlyRate: rate(t, "50.00")}

	t.Run("Location only", func(t *testing.T) {
		got, level, err := r.EffectiveBaseRate(domain.PricingChain{Location: location})
		assert.NoError(t, err)
		assert.Equal(t, domain.PricingLevelLocation, level)
		assert.Equal(t, "50.00 PHP", got.String())
	})

	t.Run("Nearest override wins", func(t *testing.T) {
		chain := domain.PricingChain{
			Spot:     &domain.PricingConfig{},
			Zone:     &domain.PricingConfig{HourlyRate: rate(t, "70.00")},
			Section:  &domain.PricingConfig{HourlyRate: rate(t, "60.00")},
			Location: location,
		}
		got, level, err := r.EffectiveBaseRate(chain)
		assert.NoError(t, err)
		assert.Equal(t, domain.PricingLevelZone, level)
		assert.Equal(t, "70.00 PHP", got.String())

		chain.Spot = &domain.PricingConfig{HourlyRate: rate(t, "80.00")}
		got, level, err = r.EffectiveBaseRate(chain)
		assert.NoError(t, err)
		assert.Equal(t, domain.PricingLevelSpot, level)
		assert.Equal(t, "80.00 PHP", got.String())
	})

	t.Run("Missing location rate", func(t *testing.T) {
		_, _, err := r.EffectiveBaseRate(domain.PricingChain{Spot: &domain.PricingConfig{HourlyRate: rate(t, "1.00")}})
		assert.ErrorIs(t, err, ErrMissingBaseRate)
	})

	t.Run("Mixed currencies", func(t *testing.T) {
		usd, err := domain.ParseMoney("1.00", "USD")
		require.NoError(t, err)
		_, _, err = r.EffectiveBaseRate(domain.PricingChain{Spot: &domain.PricingConfig{HourlyRate: &usd}, Location: location})
		assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
	})
}

func TestResolve(t *testing.T) {
	r := NewResolver()
	chain := domain.PricingChain{Location: domain.PricingConfig{HourlyRate: rate(t, "50.00")}}

	t.Run("Off-peak car rounds duration up", func(t *testing.T) {
		q, err := r.Resolve(chain, window(t, at(10, 0), 150*time.Minute), domain.VehicleTypeCar)
		require.NoError(t, err)
		assert.Equal(t, int64(3), q.BillableHours)
		assert.Equal(t, TimeBandStandard, q.TimeBand)
		assert.Equal(t, "150.00 PHP", q.BaseAmount.String())
	})

	t.Run("Motorcycle at peak", func(t *testing.T) {
		q, err := r.Resolve(chain, window(t, at(7, 30), time.Hour), domain.VehicleTypeMotorcycle)
		require.NoError(t, err)
		assert.True(t, q.EffectiveHourlyRate.Equal(decimal.RequireFromString("37.5")), q.EffectiveHourlyRate.String())
		assert.Equal(t, TimeBandPeak, q.TimeBand)
		assert.Equal(t, "37.50 PHP", q.BaseAmount.String())
	})

	t.Run("Night", func(t *testing.T) {
		q, err := r.Resolve(chain, window(t, at(23, 0), 2*time.Hour), domain.VehicleTypeCar)
		require.NoError(t, err)
		assert.Equal(t, TimeBandNight, q.TimeBand)
		assert.Equal(t, "80.00 PHP", q.BaseAmount.String())
	})

	t.Run("Unknown vehicle prices like a car", func(t *testing.T) {
		q, err := r.Resolve(chain, window(t, at(12, 0), time.Hour), "hovercraft")
		require.NoError(t, err)
		assert.True(t, q.VehicleMultiplier.Equal(decimal.NewFromInt(1)))
	})

	t.Run("Start hour read in configured zone", func(t *testing.T) {
		manila := time.FixedZone("PHT", 8*60*60)
		local := NewResolver(WithLocation(manila))
		// 23:30 UTC is 07:30 in Manila
		q, err := local.Resolve(chain, window(t, at(23, 30), time.Hour), domain.VehicleTypeCar)
		require.NoError(t, err)
		assert.Equal(t, TimeBandPeak, q.TimeBand)
	})

	t.Run("Monotonic in duration", func(t *testing.T) {
		previous := decimal.Zero
		for minutes := 1; minutes <= 600; minutes += 17 {
			amount, err := r.ResolveBaseAmount(chain, window(t, at(10, 0), time.Duration(minutes)*time.Minute), domain.VehicleTypeSUV)
			require.NoError(t, err)
			assert.True(t, amount.Amount().GreaterThanOrEqual(previous))
			previous = amount.Amount()
		}
	})
}

func TestScheduleWindows(t *testing.T) {
	s := DefaultSchedule()
	cases := map[int]TimeBand{
		0: TimeBandNight, 5: TimeBandNight, 6: TimeBandStandard,
		7: TimeBandPeak, 8: TimeBandPeak, 9: TimeBandStandard,
		16: TimeBandStandard, 17: TimeBandPeak, 18: TimeBandPeak,
		19: TimeBandStandard, 21: TimeBandStandard, 22: TimeBandNight, 23: TimeBandNight,
	}
	for hour, want := range cases {
		_, band := s.TimeMultiplier(hour)
		assert.Equal(t, want, band, "hour %d", hour)
	}
	assert.NoError(t, s.Validate())

	s.PeakWindows = append(s.PeakWindows, HourWindow{From: 5, To: 5})
	assert.Error(t, s.Validate())
}
