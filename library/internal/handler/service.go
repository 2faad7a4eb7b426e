package handler

import (
	"context"

	"github.com/ilyakh/library-service/library/internal/model"
	"github.com/ilyakh/library-service/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go -package=mocks

type LibraryService interface {
	AddBook(ctx context.Context, req model.AddBookRequest) (string, error)
	BorrowBook(ctx context.Context, patronID string, bookID int64) (string, error)
	ReturnBook(ctx context.Context, patronID string, bookID int64) (string, error)
	CalculateLateFee(ctx context.Context, patronID string, bookID int64) (model.FeeQuote, error)
	SearchBooks(ctx context.Context, term, kind string) ([]model.Book, error)
	PatronStatusReport(ctx context.Context, patronID string) (model.PatronReport, error)
	PayLateFee(ctx context.Context, patronID string, bookID int64, gw service.PaymentGateway) (model.PaymentReceipt, error)
	RefundLateFee(ctx context.Context, transactionID string, amount float64, gw service.PaymentGateway) (string, error)
}

var _ LibraryService = (*service.Service)(nil)
