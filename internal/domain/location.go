package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	latitude  float64
	longitude float64
}

func NewCoordinates(latitude, longitude float64) (Coordinates, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return Coordinates{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return Coordinates{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, longitude)
	}
	return Coordinates{latitude: latitude, longitude: longitude}, nil
}

func (c Coordinates) Latitude() float64  { return c.latitude }
func (c Coordinates) Longitude() float64 { return c.longitude }

func (c Coordinates) Equals(other Coordinates) bool {
	return c.latitude == other.latitude && c.longitude == other.longitude
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance using the haversine formula.
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(other.latitude - c.latitude)
	dLng := toRad(other.longitude - c.longitude)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(c.latitude))*math.Cos(toRad(other.latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

var postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{2,9}$`)

// Address is a validated postal address. Country is an ISO 3166-1 alpha-2 region.
type Address struct {
	Street     string
	City       string
	Province   string
	PostalCode string
	Country    string
}

func NewAddress(street, city, province, postalCode, country string) (Address, error) {
	addr := Address{
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		Province:   strings.TrimSpace(province),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	if addr.Street == "" {
		return Address{}, fmt.Errorf("%w: street is required", ErrInvalidAddress)
	}
	if addr.City == "" {
		return Address{}, fmt.Errorf("%w: city is required", ErrInvalidAddress)
	}
	if addr.PostalCode != "" && !postalCodePattern.MatchString(addr.PostalCode) {
		return Address{}, fmt.Errorf("%w: malformed postal code %q", ErrInvalidAddress, addr.PostalCode)
	}
	if len(addr.Country) != 2 {
		return Address{}, fmt.Errorf("%w: country must be a two-letter region code", ErrInvalidAddress)
	}
	if _, err := language.ParseRegion(addr.Country); err != nil {
		return Address{}, fmt.Errorf("%w: unknown country %q", ErrInvalidAddress, addr.Country)
	}
	return addr, nil
}
