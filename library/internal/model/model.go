package model

import (
	"time"
)

type Book struct {
	ID              int64  `json:"id" db:"id"`
	ISBN            string `json:"isbn" db:"isbn"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	TotalCopies     int    `json:"totalCopies" db:"total_copies"`
	AvailableCopies int    `json:"availableCopies" db:"available_copies"`
}

// Loan is one patron's borrowing of one book copy. It stays open until
// ReturnDate is set.
type Loan struct {
	ID         int64      `json:"-" db:"id"`
	LoanUid    string     `json:"loanUid" db:"loan_uid"`
	PatronID   string     `json:"patronId" db:"patron_id"`
	BookID     int64      `json:"bookId" db:"book_id"`
	BorrowDate time.Time  `json:"borrowDate" db:"borrow_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	IsOverdue  bool       `json:"isOverdue" db:"is_overdue"`
}

// FeeQuote is derived from a loan's due date against the clock; it is never
// stored.
type FeeQuote struct {
	FeeAmount   float64 `json:"feeAmount"`
	DaysOverdue int     `json:"daysOverdue"`
}

type PatronReport struct {
	PatronID         string  `json:"patronId"`
	BorrowedBooks    []Loan  `json:"borrowedBooks"`
	TotalBorrowed    int     `json:"totalBorrowed"`
	CurrentlyOverdue int     `json:"currentlyOverdue"`
	TotalLateFees    float64 `json:"totalLateFees"`
	Error            string  `json:"error,omitempty"`
}

type AddBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	TotalCopies int    `json:"totalCopies"`
}

type LoanRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int64  `json:"bookId" validate:"required"`
}

type PayFeeRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int64  `json:"bookId" validate:"required"`
}

type RefundRequest struct {
	TransactionID string  `json:"transactionId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required"`
}

// PaymentResult is the gateway's answer to a charge attempt.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
}

type RefundResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PaymentReceipt is what the fee-payment workflow reports back to the caller.
type PaymentReceipt struct {
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
}

type LoanEventKind string

const (
	LoanEventBorrowed LoanEventKind = "BORROWED"
	LoanEventReturned LoanEventKind = "RETURNED"
)

type LoanEvent struct {
	Kind     LoanEventKind `json:"kind"`
	PatronID string        `json:"patronId"`
	BookID   int64         `json:"bookId"`
	At       time.Time     `json:"at"`
}
