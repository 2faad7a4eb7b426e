package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=payment.go -destination=mocks/gateway_mock.go -package=mocks

// PaymentGateway is the external fee-settlement collaborator. A returned
// error means transport failure; a business decline comes back in the result
// with Success=false.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (model.PaymentResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount float64) (model.RefundResult, error)
}

const txnPrefix = "txn_"

// PayLateFee settles the patron's late fee for a book through the gateway.
// A nil gw falls back to the gateway wired at construction. A zero fee never
// contacts the gateway; transport failures are reported, never propagated.
func (s *Service) PayLateFee(ctx context.Context, patronID string, bookID int64, gw PaymentGateway) (model.PaymentReceipt, error) {
	if gw == nil {
		gw = s.gateway
	}
	if !validPatronID(patronID) {
		return model.PaymentReceipt{}, errs.ErrInvalidPatronID
	}

	var (
		quote   model.FeeQuote
		book    model.Book
		bookErr error
	)
	gg, gctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		q, err := s.CalculateLateFee(gctx, patronID, bookID)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	gg.Go(func() error {
		b, err := s.repo.GetBookByID(gctx, bookID)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return errs.Store("looking up the book", err)
		}
		book, bookErr = b, err
		return nil
	})
	if err := gg.Wait(); err != nil {
		return model.PaymentReceipt{}, err
	}

	// the fee check comes first: a zero fee wins over a missing book
	if quote.FeeAmount <= 0 {
		return model.PaymentReceipt{}, errs.ErrNoFeesToPay
	}
	if bookErr != nil {
		return model.PaymentReceipt{}, errs.ErrBookNotFound
	}

	res, err := gw.ProcessPayment(ctx, patronID, quote.FeeAmount, fmt.Sprintf("Late fees for '%s'", book.Title))
	if err != nil {
		return model.PaymentReceipt{}, errs.Gateway("Payment processing", err)
	}
	if !res.Success {
		return model.PaymentReceipt{}, errors.Errorf("Payment failed: %s", res.Message)
	}

	return model.PaymentReceipt{
		Message:       fmt.Sprintf("Payment successful! %s", res.Message),
		TransactionID: res.TransactionID,
	}, nil
}

// RefundLateFee refunds a previously settled fee. The transaction id must
// carry the gateway prefix and the amount must fit within the fee cap before
// the gateway is contacted at all.
func (s *Service) RefundLateFee(ctx context.Context, transactionID string, amount float64, gw PaymentGateway) (string, error) {
	if gw == nil {
		gw = s.gateway
	}

	if !strings.HasPrefix(transactionID, txnPrefix) {
		return "", errs.ErrInvalidTxnID
	}
	if amount <= 0 {
		return "", errs.ErrRefundNotPositive
	}
	if amount > MaxLateFee {
		return "", errs.ErrRefundTooLarge
	}

	res, err := gw.RefundPayment(ctx, transactionID, amount)
	if err != nil {
		return "", errs.Gateway("Refund processing", err)
	}
	if !res.Success {
		return "", errors.Errorf("Refund failed: %s", res.Message)
	}

	return res.Message, nil
}
