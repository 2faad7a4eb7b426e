package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Rule outcomes carry the exact user-facing message in Error(). The handler
// maps them to HTTP statuses; none of them escapes the service layer as a
// raw collaborator error.
var (
	ErrTitleRequired  = errors.New("Title is required.")
	ErrTitleTooLong   = errors.New("Title must be less than 200 characters.")
	ErrAuthorRequired = errors.New("Author is required.")
	ErrAuthorTooLong  = errors.New("Author must be less than 100 characters.")
	ErrInvalidISBN    = errors.New("ISBN must be exactly 13 digits.")
	ErrInvalidCopies  = errors.New("Total copies must be a positive integer.")
	ErrDuplicateISBN  = errors.New("A book with this ISBN already exists.")

	ErrInvalidPatronID  = errors.New("Invalid patron ID. Must be exactly 6 digits.")
	ErrBookNotFound     = errors.New("Book not found.")
	ErrBookNotAvailable = errors.New("This book is currently not available.")
	ErrBorrowLimit      = errors.New("You have reached the maximum borrowing limit of 5 books.")
	ErrLoanNotFound     = errors.New("Book was not borrowed by patron.")

	ErrNoFeesToPay       = errors.New("No late fees to pay for this book.")
	ErrInvalidTxnID      = errors.New("Invalid transaction ID.")
	ErrRefundNotPositive = errors.New("Refund amount must be greater than 0.")
	ErrRefundTooLarge    = errors.New("Refund amount exceeds maximum late fee.")

	ErrNotFound = errors.New("not found")
)

// StoreError is the generic persistence failure. The underlying driver error
// is kept for logs but the message shown to callers stays fixed.
type StoreError struct {
	Action string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("Database error occurred while %s.", e.Action)
}

func (e *StoreError) Unwrap() error { return e.Err }

func Store(action string, err error) error {
	return &StoreError{Action: action, Err: err}
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// GatewayError wraps a payment-gateway transport failure; it never propagates
// the raw error to callers.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func Gateway(op string, err error) error {
	return &GatewayError{Op: op, Err: err}
}

func IsGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
