package service

import (
	"context"
	"fmt"
	"time"

	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/quote"
	"parkspot-backend/internal/repository"
)

// BookingCalculator prices a resolved pricing chain.
type BookingCalculator interface {
	CalculateBookingCost(chain domain.PricingChain, window domain.TimeRange, vehicle domain.VehicleType, user domain.UserContext) (quote.BookingCost, error)
}

type quoteService struct {
	pricingRepo repository.PricingRepository
	calculator  BookingCalculator
	metrics     *metrics.Metrics
}

func NewQuoteService(pricingRepo repository.PricingRepository, calculator BookingCalculator, m *metrics.Metrics) QuoteService {
	return &quoteService{
		pricingRepo: pricingRepo,
		calculator:  calculator,
		metrics:     m,
	}
}

func (s *quoteService) Quote(ctx context.Context, req QuoteRequest) (cost *quote.BookingCost, err error) {
	logger.EnterMethod("quoteService.Quote", "spotID", req.SpotID, "vehicle", req.Vehicle)
	started := time.Now()
	defer func() { s.metrics.ObserveQuote(started, err) }()

	hierarchy, err := s.pricingRepo.GetSpotHierarchy(ctx, req.SpotID)
	if err != nil {
		logger.ExitMethodWithError("quoteService.Quote", err, "spotID", req.SpotID)
		return nil, fmt.Errorf("failed to load pricing for spot %s: %w", req.SpotID, err)
	}

	result, err := s.calculator.CalculateBookingCost(hierarchy.Chain(), req.Window, req.Vehicle, req.User)
	if err != nil {
		logger.ExitMethodWithError("quoteService.Quote", err, "spotID", req.SpotID)
		return nil, err
	}

	s.metrics.RecordDiscounts(result.Discounts, result.Transaction.VAT.IsExempt)
	logger.ExitMethod("quoteService.Quote",
		"spotID", req.SpotID,
		"level", result.Rate.Level,
		"total", result.TotalAmount.String(),
		"discounts", len(result.Discounts))
	return &result, nil
}
