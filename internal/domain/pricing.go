package domain

import (
	"fmt"
	"strings"
)

type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeSUV        VehicleType = "suv"
	VehicleTypeVan        VehicleType = "van"
	VehicleTypeTruck      VehicleType = "truck"
)

// ParseVehicleType lower-cases the input. Unlisted types are accepted and
// priced like a car.
func ParseVehicleType(raw string) (VehicleType, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", fmt.Errorf("%w: vehicle type is required", ErrInvalidIdentifier)
	}
	return VehicleType(normalized), nil
}

type PricingLevel string

const (
	PricingLevelSpot     PricingLevel = "spot"
	PricingLevelZone     PricingLevel = "zone"
	PricingLevelSection  PricingLevel = "section"
	PricingLevelLocation PricingLevel = "location"
)

// PricingConfig holds an optional hourly override. A nil rate inherits from the parent level.
type PricingConfig struct {
	HourlyRate *Money
}

func (c *PricingConfig) HasRate() bool {
	return c != nil && c.HourlyRate != nil
}

type Location struct {
	ID          LocationID
	Name        string
	Address     Address
	Coordinates Coordinates
	Pricing     PricingConfig
}

type Section struct {
	ID         SectionID
	LocationID LocationID
	Name       string
	Pricing    PricingConfig
}

type Zone struct {
	ID        ZoneID
	SectionID SectionID
	Name      string
	Pricing   PricingConfig
}

type Spot struct {
	ID      SpotID
	ZoneID  ZoneID
	Label   string
	Pricing PricingConfig
}

// PricingChain is the override chain for a single spot. Only the location
// level is mandatory.
type PricingChain struct {
	Spot     *PricingConfig
	Zone     *PricingConfig
	Section  *PricingConfig
	Location PricingConfig
}

// NewPricingChain assembles the chain from hierarchy records.
func NewPricingChain(spot Spot, zone Zone, section Section, location Location) PricingChain {
	return PricingChain{
		Spot:     &spot.Pricing,
		Zone:     &zone.Pricing,
		Section:  &section.Pricing,
		Location: location.Pricing,
	}
}

// Validate requires a location rate and a single currency across all levels.
func (c PricingChain) Validate() error {
	if !c.Location.HasRate() {
		return fmt.Errorf("%w: location has no hourly rate", ErrInvalidMoney)
	}
	base := c.Location.HourlyRate.Currency()
	for _, level := range []*PricingConfig{c.Spot, c.Zone, c.Section} {
		if level.HasRate() && level.HourlyRate.Currency() != base {
			return fmt.Errorf("%w: override in %s, location in %s", ErrCurrencyMismatch, level.HourlyRate.Currency(), base)
		}
	}
	return nil
}

// Currency returns the location currency, or empty when none is set.
func (c PricingChain) Currency() Currency {
	if !c.Location.HasRate() {
		return ""
	}
	return c.Location.HourlyRate.Currency()
}

// SpotHierarchy is a spot together with every ancestor record.
type SpotHierarchy struct {
	Spot     Spot
	Zone     Zone
	Section  Section
	Location Location
}

func (h SpotHierarchy) Chain() PricingChain {
	return NewPricingChain(h.Spot, h.Zone, h.Section, h.Location)
}
