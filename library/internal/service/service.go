package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/model"
	"github.com/ilyakh/library-service/library/internal/repository"
)

const (
	maxTitleLen  = 200
	maxAuthorLen = 100
	isbnLen      = 13
	loanPeriod   = 14 * 24 * time.Hour
	maxOpenLoans = 5
)

var patronIDRe = regexp.MustCompile(`^[0-9]{6}$`)

type Service struct {
	log     *zap.Logger
	repo    repository.Repository
	gateway PaymentGateway
}

func NewService(repo repository.Repository, gateway PaymentGateway, log *zap.Logger) *Service {
	return &Service{
		log:     log,
		repo:    repo,
		gateway: gateway,
	}
}

func validPatronID(patronID string) bool {
	return patronIDRe.MatchString(patronID)
}

// AddBook validates and registers a new title. First failed check wins; the
// duplicate-ISBN check runs against the store last.
func (s *Service) AddBook(ctx context.Context, req model.AddBookRequest) (string, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "", errs.ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", errs.ErrTitleTooLong
	}

	author := strings.TrimSpace(req.Author)
	if author == "" {
		return "", errs.ErrAuthorRequired
	}
	if utf8.RuneCountInString(author) > maxAuthorLen {
		return "", errs.ErrAuthorTooLong
	}

	if utf8.RuneCountInString(req.ISBN) != isbnLen {
		return "", errs.ErrInvalidISBN
	}
	if req.TotalCopies <= 0 {
		return "", errs.ErrInvalidCopies
	}

	if _, err := s.repo.GetBookByISBN(ctx, req.ISBN); err == nil {
		return "", errs.ErrDuplicateISBN
	} else if !errors.Is(err, errs.ErrNotFound) {
		return "", errs.Store("adding the book", err)
	}

	if err := s.repo.InsertBook(ctx, title, author, req.ISBN, req.TotalCopies, req.TotalCopies); err != nil {
		if errors.Is(err, errs.ErrDuplicateISBN) {
			return "", errs.ErrDuplicateISBN
		}
		return "", errs.Store("adding the book", err)
	}

	s.log.Info("book added", zap.String("isbn", req.ISBN), zap.String("title", title))
	return fmt.Sprintf("Book %q has been successfully added to the catalog.", title), nil
}

// BorrowBook creates a loan and decrements availability. The two writes are
// separate store calls: if the decrement fails after the insert succeeded the
// loan row persists and the caller still sees a store failure.
func (s *Service) BorrowBook(ctx context.Context, patronID string, bookID int64) (string, error) {
	if !validPatronID(patronID) {
		return "", errs.ErrInvalidPatronID
	}

	book, err := s.repo.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrBookNotFound
		}
		return "", errs.Store("looking up the book", err)
	}
	if book.AvailableCopies <= 0 {
		return "", errs.ErrBookNotAvailable
	}

	outstanding, err := s.repo.CountOutstandingLoans(ctx, patronID)
	if err != nil {
		return "", errs.Store("fetching borrow records", err)
	}
	// The original rule is "> 5", which lets a patron reach 6 open loans
	// before rejection. Kept as-is pending product sign-off.
	if outstanding > maxOpenLoans {
		return "", errs.ErrBorrowLimit
	}

	borrowDate := time.Now()
	dueDate := borrowDate.Add(loanPeriod)

	if err := s.repo.InsertLoan(ctx, patronID, bookID, borrowDate, dueDate); err != nil {
		return "", errs.Store("creating borrow record", err)
	}
	if err := s.repo.UpdateBookAvailability(ctx, bookID, -1); err != nil {
		return "", errs.Store("updating book availability", err)
	}

	s.log.Info("book borrowed",
		zap.String("patronId", patronID),
		zap.Int64("bookId", bookID),
		zap.Time("dueDate", dueDate))
	return fmt.Sprintf("Successfully borrowed %q. Due date: %s.", book.Title, dueDate.Format(time.DateOnly)), nil
}

// ReturnBook closes the patron's open loan for the book, restores the copy
// and reports any late fee computed from the loan's due date against now.
func (s *Service) ReturnBook(ctx context.Context, patronID string, bookID int64) (string, error) {
	if !validPatronID(patronID) {
		return "", errs.ErrInvalidPatronID
	}

	book, err := s.repo.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrBookNotFound
		}
		return "", errs.Store("looking up the book", err)
	}

	loans, err := s.repo.GetPatronLoans(ctx, patronID)
	if err != nil {
		return "", errs.Store("fetching borrow records", err)
	}
	loan, ok := findOpenLoan(loans, bookID)
	if !ok {
		return "", errs.ErrLoanNotFound
	}

	now := time.Now()
	if err := s.repo.SetLoanReturnDate(ctx, patronID, bookID, now); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrLoanNotFound
		}
		return "", errs.Store("updating patron borrow record", err)
	}
	if err := s.repo.UpdateBookAvailability(ctx, bookID, +1); err != nil {
		return "", errs.Store("updating book availability", err)
	}

	quote := LateFee(loan.DueDate, now)

	s.log.Info("book returned",
		zap.String("patronId", patronID),
		zap.Int64("bookId", bookID),
		zap.Float64("fee", quote.FeeAmount))
	if quote.FeeAmount > 0 {
		return fmt.Sprintf("Successfully returned %q. Overdue by %d day(s). Late fee: $%.2f.",
			book.Title, quote.DaysOverdue, quote.FeeAmount), nil
	}
	return fmt.Sprintf("Successfully returned %q. No late fees owed.", book.Title), nil
}

func findOpenLoan(loans []model.Loan, bookID int64) (model.Loan, bool) {
	for _, l := range loans {
		if l.BookID == bookID && l.ReturnDate == nil {
			return l, true
		}
	}
	return model.Loan{}, false
}
