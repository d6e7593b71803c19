package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const maxIdentifierLength = 128

type (
	LocationID string
	SectionID  string
	ZoneID     string
	SpotID     string
	RuleID     string
)

func NewLocationID(raw string) (LocationID, error) {
	id, err := parseIdentifier("location", raw)
	return LocationID(id), err
}

func NewSectionID(raw string) (SectionID, error) {
	id, err := parseIdentifier("section", raw)
	return SectionID(id), err
}

func NewZoneID(raw string) (ZoneID, error) {
	id, err := parseIdentifier("zone", raw)
	return ZoneID(id), err
}

func NewSpotID(raw string) (SpotID, error) {
	id, err := parseIdentifier("spot", raw)
	return SpotID(id), err
}

func NewRuleID(raw string) (RuleID, error) {
	id, err := parseIdentifier("rule", raw)
	return RuleID(id), err
}

func parseIdentifier(kind, raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: %s id is required", ErrInvalidIdentifier, kind)
	}
	if len(id) > maxIdentifierLength {
		return "", fmt.Errorf("%w: %s id exceeds %d characters", ErrInvalidIdentifier, kind, maxIdentifierLength)
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: %s id %q contains whitespace", ErrInvalidIdentifier, kind, id)
	}
	return id, nil
}
