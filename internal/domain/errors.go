package domain

import "errors"

var (
	ErrInvalidMoney       = errors.New("invalid money amount")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrNegativeMoney      = errors.New("money amount cannot be negative")
	ErrInvalidFactor      = errors.New("invalid arithmetic factor")
	ErrInvalidPercentage  = errors.New("percentage must be between 0 and 100")
	ErrInvalidTimeRange   = errors.New("time range start must be before end")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrInvalidRule        = errors.New("invalid discount rule")
	ErrConditionIndex     = errors.New("condition index out of range")
	ErrInvalidCalculation = errors.New("inconsistent calculation")
)
