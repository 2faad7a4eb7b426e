package service

import (
	"context"
	"math"
	"time"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/model"
)

const (
	// MaxLateFee is the hard ceiling per loan, however overdue.
	MaxLateFee = 15.00

	dailyRate        = 0.50
	escalatedRate    = 1.00
	escalationAfterD = 7
)

// LateFee is the single source of truth for fee math. Days 1-7 cost $0.50
// each, every day beyond costs $1.00, capped at MaxLateFee and rounded to
// cents. A due date in the future yields a zero quote.
func LateFee(dueDate, now time.Time) model.FeeQuote {
	days := int(now.Sub(dueDate).Hours() / 24)
	if days <= 0 {
		return model.FeeQuote{FeeAmount: 0, DaysOverdue: 0}
	}

	var fee float64
	if days <= escalationAfterD {
		fee = float64(days) * dailyRate
	} else {
		fee = escalationAfterD*dailyRate + float64(days-escalationAfterD)*escalatedRate
	}
	fee = math.Min(fee, MaxLateFee)

	return model.FeeQuote{
		FeeAmount:   math.Round(fee*100) / 100,
		DaysOverdue: days,
	}
}

// CalculateLateFee quotes the fee for the patron's open loan of the book.
// No matching open loan means a zero quote, not an error.
func (s *Service) CalculateLateFee(ctx context.Context, patronID string, bookID int64) (model.FeeQuote, error) {
	loans, err := s.repo.GetPatronLoans(ctx, patronID)
	if err != nil {
		return model.FeeQuote{}, errs.Store("fetching borrow records", err)
	}

	loan, ok := findOpenLoan(loans, bookID)
	if !ok {
		return model.FeeQuote{FeeAmount: 0, DaysOverdue: 0}, nil
	}

	return LateFee(loan.DueDate, time.Now()), nil
}
