package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/repository"
)

type pricingRepository struct {
	db *sql.DB
}

func NewPricingRepository(db *sql.DB) repository.PricingRepository {
	return &pricingRepository{db: db}
}

const spotHierarchyQuery = `
	SELECT sp.id, sp.label, sp.hourly_rate_cents,
	       z.id, z.name, z.hourly_rate_cents,
	       s.id, s.name, s.hourly_rate_cents,
	       l.id, l.name, l.street, l.city, l.province, l.postal_code, l.country,
	       l.latitude, l.longitude, l.currency, l.hourly_rate_cents
	FROM spots sp
	JOIN zones z ON z.id = sp.zone_id
	JOIN sections s ON s.id = z.section_id
	JOIN locations l ON l.id = s.location_id
	WHERE sp.id = $1
`

func (r *pricingRepository) GetSpotHierarchy(ctx context.Context, spotID domain.SpotID) (*domain.SpotHierarchy, error) {
	logger.EnterMethod("pricingRepository.GetSpotHierarchy", "spotID", spotID)

	var (
		h                               domain.SpotHierarchy
		spotRate, zoneRate, sectionRate sql.NullInt64
		street, city, province, postal  string
		country, currencyCode           string
		latitude, longitude             float64
		locationRate                    int64
	)
	logger.StoreCall("postgres", "select", "spot hierarchy", "spotID", spotID)
	err := r.db.QueryRowContext(ctx, spotHierarchyQuery, string(spotID)).Scan(
		&h.Spot.ID, &h.Spot.Label, &spotRate,
		&h.Zone.ID, &h.Zone.Name, &zoneRate,
		&h.Section.ID, &h.Section.Name, &sectionRate,
		&h.Location.ID, &h.Location.Name, &street, &city, &province, &postal, &country,
		&latitude, &longitude, &currencyCode, &locationRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethodWithError("pricingRepository.GetSpotHierarchy", repository.ErrNotFound, "spotID", spotID)
		return nil, fmt.Errorf("%w: spot %s", repository.ErrNotFound, spotID)
	}
	if err != nil {
		logger.ExitMethodWithError("pricingRepository.GetSpotHierarchy", err, "spotID", spotID)
		return nil, err
	}

	h.Spot.ZoneID = h.Zone.ID
	h.Zone.SectionID = h.Section.ID
	h.Section.LocationID = h.Location.ID

	if h.Location.Address, err = domain.NewAddress(street, city, province, postal, country); err != nil {
		return nil, fmt.Errorf("location %s: %w", h.Location.ID, err)
	}
	if h.Location.Coordinates, err = domain.NewCoordinates(latitude, longitude); err != nil {
		return nil, fmt.Errorf("location %s: %w", h.Location.ID, err)
	}

	cur := domain.Currency(currencyCode)
	base, err := domain.MoneyFromCents(locationRate, cur)
	if err != nil {
		return nil, fmt.Errorf("location %s rate: %w", h.Location.ID, err)
	}
	h.Location.Pricing = domain.PricingConfig{HourlyRate: &base}

	for _, level := range []struct {
		rate sql.NullInt64
		dst  *domain.PricingConfig
	}{
		{sectionRate, &h.Section.Pricing},
		{zoneRate, &h.Zone.Pricing},
		{spotRate, &h.Spot.Pricing},
	} {
		if !level.rate.Valid {
			continue
		}
		m, err := domain.MoneyFromCents(level.rate.Int64, cur)
		if err != nil {
			return nil, fmt.Errorf("spot %s override: %w", spotID, err)
		}
		level.dst.HourlyRate = &m
	}

	logger.ExitMethod("pricingRepository.GetSpotHierarchy", "spotID", spotID, "locationID", h.Location.ID)
	return &h, nil
}
