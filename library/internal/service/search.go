package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/model"
)

// SearchBooks looks up the catalog. Kind "isbn" is an exact trimmed
// case-insensitive match returning at most one book; "title" and "author"
// are case-insensitive substring matches over the whole catalog. A blank
// term or an unknown kind yields an empty result, never an error.
func (s *Service) SearchBooks(ctx context.Context, term, kind string) ([]model.Book, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []model.Book{}, nil
	}

	kind = strings.ToLower(kind)
	switch kind {
	case "isbn":
		book, err := s.repo.GetBookByISBN(ctx, term)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return []model.Book{}, nil
			}
			return nil, errs.Store("searching the catalog", err)
		}
		return []model.Book{book}, nil

	case "title", "author":
		books, err := s.repo.GetAllBooks(ctx)
		if err != nil {
			return nil, errs.Store("searching the catalog", err)
		}
		byAuthor := kind == "author"
		results := make([]model.Book, 0, len(books))
		for _, b := range books {
			field := b.Title
			if byAuthor {
				field = b.Author
			}
			if strings.Contains(strings.ToLower(field), term) {
				results = append(results, b)
			}
		}
		return results, nil

	default:
		return []model.Book{}, nil
	}
}

// PatronStatusReport aggregates all of a patron's loans, open and historical.
// An invalid patron id comes back as an error-flagged report, not an error.
func (s *Service) PatronStatusReport(ctx context.Context, patronID string) (model.PatronReport, error) {
	if !validPatronID(patronID) {
		return model.PatronReport{
			PatronID:      patronID,
			BorrowedBooks: []model.Loan{},
			Error:         errs.ErrInvalidPatronID.Error(),
		}, nil
	}

	loans, err := s.repo.GetPatronLoans(ctx, patronID)
	if err != nil {
		return model.PatronReport{}, errs.Store("fetching borrow records", err)
	}
	if loans == nil {
		loans = []model.Loan{}
	}

	now := time.Now()
	var (
		overdue   int
		totalFees float64
	)
	for _, l := range loans {
		if l.IsOverdue {
			overdue++
			totalFees += LateFee(l.DueDate, now).FeeAmount
		}
	}

	return model.PatronReport{
		PatronID:         patronID,
		BorrowedBooks:    loans,
		TotalBorrowed:    len(loans),
		CurrentlyOverdue: overdue,
		TotalLateFees:    math.Round(totalFees*100) / 100,
	}, nil
}
