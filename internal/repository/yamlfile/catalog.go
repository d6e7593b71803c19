package yamlfile

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/repository"
)

type catalogFile struct {
	Currency  string        `yaml:"currency"`
	Locations []locationDoc `yaml:"locations"`
}

type locationDoc struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	HourlyRate string       `yaml:"hourly_rate"`
	Address    addressDoc   `yaml:"address"`
	Latitude   float64      `yaml:"latitude"`
	Longitude  float64      `yaml:"longitude"`
	Sections   []sectionDoc `yaml:"sections"`
}

type addressDoc struct {
	Street     string `yaml:"street"`
	City       string `yaml:"city"`
	Province   string `yaml:"province"`
	PostalCode string `yaml:"postal_code"`
	Country    string `yaml:"country"`
}

type sectionDoc struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	HourlyRate string    `yaml:"hourly_rate,omitempty"`
	Zones      []zoneDoc `yaml:"zones"`
}

type zoneDoc struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	HourlyRate string    `yaml:"hourly_rate,omitempty"`
	Spots      []spotDoc `yaml:"spots"`
}

type spotDoc struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	HourlyRate string `yaml:"hourly_rate,omitempty"`
}

// Catalog is a read-only location hierarchy loaded from YAML, indexed by spot.
type Catalog struct {
	spots map[domain.SpotID]domain.SpotHierarchy
}

var _ repository.PricingRepository = (*Catalog)(nil)

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return DecodeCatalog(data)
}

func DecodeCatalog(data []byte) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	cur, err := domain.NewCurrency(doc.Currency)
	if err != nil {
		return nil, err
	}

	c := &Catalog{spots: make(map[domain.SpotID]domain.SpotHierarchy)}
	for _, l := range doc.Locations {
		location, err := l.toDomain(cur)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", l.ID, err)
		}
		for _, s := range l.Sections {
			sectionID, err := domain.NewSectionID(s.ID)
			if err != nil {
				return nil, err
			}
			section := domain.Section{ID: sectionID, LocationID: location.ID, Name: s.Name}
			if section.Pricing, err = optionalRate(s.HourlyRate, cur); err != nil {
				return nil, fmt.Errorf("section %s: %w", s.ID, err)
			}
			for _, z := range s.Zones {
				zoneID, err := domain.NewZoneID(z.ID)
				if err != nil {
					return nil, err
				}
				zone := domain.Zone{ID: zoneID, SectionID: section.ID, Name: z.Name}
				if zone.Pricing, err = optionalRate(z.HourlyRate, cur); err != nil {
					return nil, fmt.Errorf("zone %s: %w", z.ID, err)
				}
				for _, sp := range z.Spots {
					spotID, err := domain.NewSpotID(sp.ID)
					if err != nil {
						return nil, err
					}
					if _, dup := c.spots[spotID]; dup {
						return nil, fmt.Errorf("%w: duplicate spot %s", domain.ErrInvalidIdentifier, spotID)
					}
					spot := domain.Spot{ID: spotID, ZoneID: zone.ID, Label: sp.Label}
					if spot.Pricing, err = optionalRate(sp.HourlyRate, cur); err != nil {
						return nil, fmt.Errorf("spot %s: %w", sp.ID, err)
					}
					c.spots[spotID] = domain.SpotHierarchy{Spot: spot, Zone: zone, Section: section, Location: location}
				}
			}
		}
	}
	return c, nil
}

func (l locationDoc) toDomain(cur domain.Currency) (domain.Location, error) {
	id, err := domain.NewLocationID(l.ID)
	if err != nil {
		return domain.Location{}, err
	}
	addr, err := domain.NewAddress(l.Address.Street, l.Address.City, l.Address.Province, l.Address.PostalCode, l.Address.Country)
	if err != nil {
		return domain.Location{}, err
	}
	coords, err := domain.NewCoordinates(l.Latitude, l.Longitude)
	if err != nil {
		return domain.Location{}, err
	}
	rate, err := domain.ParseMoney(l.HourlyRate, cur)
	if err != nil {
		return domain.Location{}, err
	}
	return domain.Location{
		ID:          id,
		Name:        l.Name,
		Address:     addr,
		Coordinates: coords,
		Pricing:     domain.PricingConfig{HourlyRate: &rate},
	}, nil
}

func optionalRate(raw string, cur domain.Currency) (domain.PricingConfig, error) {
	if raw == "" {
		return domain.PricingConfig{}, nil
	}
	rate, err := domain.ParseMoney(raw, cur)
	if err != nil {
		return domain.PricingConfig{}, err
	}
	return domain.PricingConfig{HourlyRate: &rate}, nil
}

func (c *Catalog) GetSpotHierarchy(ctx context.Context, spotID domain.SpotID) (*domain.SpotHierarchy, error) {
	h, ok := c.spots[spotID]
	if !ok {
		return nil, fmt.Errorf("%w: spot %s", repository.ErrNotFound, spotID)
	}
	return &h, nil
}

// Len returns the number of spots in the catalog.
func (c *Catalog) Len() int { return len(c.spots) }
