package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/repository"
)

const sampleRules = `
rules:
  - id: senior
    name: Senior Citizen
    type: senior_citizen
    percentage: 20
    vat_exempt: true
    conditions:
      - field: age
        operator: greater_than_or_equal
        value: 60
  - id: corporate
    name: Corporate Partner
    type: corporate
    percentage: "12.5"
    active: false
    conditions:
      - field: company.name
        operator: contains
        value: acme
`

const sampleCatalog = `
currency: PHP
locations:
  - id: loc-1
    name: Ayala Center
    hourly_rate: "50.00"
    latitude: 14.5509
    longitude: 121.0262
    address:
      street: 1 Ayala Ave
      city: Makati
      country: PH
    sections:
      - id: sec-1
        name: Basement
        zones:
          - id: zone-a
            name: Zone A
            hourly_rate: "70.00"
            spots:
              - id: spot-1
                label: A-01
              - id: spot-2
                label: A-02
                hourly_rate: "90.00"
`

func TestDecodeRules(t *testing.T) {
	rules, err := DecodeRules([]byte(sampleRules))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, domain.RuleID("senior"), rules[0].ID)
	assert.True(t, rules[0].IsActive)
	assert.True(t, rules[0].IsVATExempt)
	assert.True(t, rules[0].Conditions[0].Value.Equal(domain.IntValue(60)))

	assert.False(t, rules[1].IsActive)
	assert.Equal(t, "12.5", rules[1].Percentage.Value().String())
	assert.Equal(t, "company.name", rules[1].Conditions[0].Field)
}

func TestDecodeRulesRejectsInvalid(t *testing.T) {
	_, err := DecodeRules([]byte("rules:\n  - id: x\n    name: X\n    type: custom\n    percentage: 150\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidPercentage)

	_, err = DecodeRules([]byte("rules: [\n"))
	assert.Error(t, err)
}

func TestRuleStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	store := NewRuleStore(path)
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		rules, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, rules, 2)
	})

	t.Run("Create and read back", func(t *testing.T) {
		pct, _ := domain.PercentageFromInt(5)
		rule, err := domain.NewDiscountRule("loyal", "Loyalty", domain.DiscountTypeLoyalty, pct, false, nil)
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, &rule))
		assert.False(t, rule.CreatedAt.IsZero())

		got, err := store.GetByID(ctx, "loyal")
		require.NoError(t, err)
		assert.Equal(t, "Loyalty", got.Name)

		assert.ErrorIs(t, store.Create(ctx, &rule), repository.ErrDuplicate)
	})

	t.Run("Update", func(t *testing.T) {
		got, err := store.GetByID(ctx, "corporate")
		require.NoError(t, err)
		got.Activate()
		require.NoError(t, store.Update(ctx, got))

		again, err := store.GetByID(ctx, "corporate")
		require.NoError(t, err)
		assert.True(t, again.IsActive)
		assert.Equal(t, "acme", again.Conditions[0].Value.String())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "senior"))
		_, err := store.GetByID(ctx, "senior")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "senior"), repository.ErrNotFound)
	})

	t.Run("Missing file is empty", func(t *testing.T) {
		rules, err := NewRuleStore(filepath.Join(t.TempDir(), "none.yaml")).List(ctx)
		assert.NoError(t, err)
		assert.Empty(t, rules)
	})
}

func TestCatalog(t *testing.T) {
	c, err := DecodeCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	ctx := context.Background()

	h, err := c.GetSpotHierarchy(ctx, "spot-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneID("zone-a"), h.Spot.ZoneID)
	assert.False(t, h.Spot.Pricing.HasRate())
	assert.Equal(t, "70.00 PHP", h.Zone.Pricing.HourlyRate.String())

	h, err = c.GetSpotHierarchy(ctx, "spot-2")
	require.NoError(t, err)
	assert.Equal(t, "90.00 PHP", h.Spot.Pricing.HourlyRate.String())

	_, err = c.GetSpotHierarchy(ctx, "spot-9")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCatalogRejectsBadData(t *testing.T) {
	_, err := DecodeCatalog([]byte("currency: XYZ\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	bad := `
currency: PHP
locations:
  - id: loc-1
    name: Nowhere
    hourly_rate: "50.00"
    latitude: 95
    longitude: 0
    address: {street: x, city: y, country: PH}
`
	_, err = DecodeCatalog([]byte(bad))
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
}
