package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/handler"
	"github.com/ilyakh/library-service/library/internal/handler/mocks"
	"github.com/ilyakh/library-service/library/internal/model"
)

func newRouter(t *testing.T) (*echo.Echo, *mocks.MockLibraryService) {
	t.Helper()
	c := gomock.NewController(t)
	svc := mocks.NewMockLibraryService(c)
	h := handler.New(svc, handler.NewEnqueuer(nil), zap.NewNop())
	return h.NewRouter(), svc
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	e, _ := newRouter(t)

	rec := doJSON(e, http.MethodGet, "/manage/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestHandler_AddBook(t *testing.T) {
	t.Parallel()

	type mockBehavior func(s *mocks.MockLibraryService)

	tests := []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		wantCode     int
		wantBody     string
	}{
		{
			name: "created",
			body: `{"title":"Dune","author":"Frank Herbert","isbn":"1111111111111","totalCopies":3}`,
			mockBehavior: func(s *mocks.MockLibraryService) {
				s.EXPECT().
					AddBook(gomock.Any(), model.AddBookRequest{Title: "Dune", Author: "Frank Herbert", ISBN: "1111111111111", TotalCopies: 3}).
					Return(`Book "Dune" has been successfully added to the catalog.`, nil)
			},
			wantCode: http.StatusCreated,
			wantBody: `{"success":true,"message":"Book \"Dune\" has been successfully added to the catalog."}`,
		},
		{
			name: "validation failure",
			body: `{"title":"","author":"Frank Herbert","isbn":"1111111111111","totalCopies":3}`,
			mockBehavior: func(s *mocks.MockLibraryService) {
				s.EXPECT().
					AddBook(gomock.Any(), gomock.Any()).
					Return("", errs.ErrTitleRequired)
			},
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"Title is required."}`,
		},
		{
			name: "duplicate isbn",
			body: `{"title":"Dune","author":"Frank Herbert","isbn":"1111111111111","totalCopies":3}`,
			mockBehavior: func(s *mocks.MockLibraryService) {
				s.EXPECT().
					AddBook(gomock.Any(), gomock.Any()).
					Return("", errs.ErrDuplicateISBN)
			},
			wantCode: http.StatusConflict,
			wantBody: `{"message":"A book with this ISBN already exists."}`,
		},
		{
			name: "store failure",
			body: `{"title":"Dune","author":"Frank Herbert","isbn":"1111111111111","totalCopies":3}`,
			mockBehavior: func(s *mocks.MockLibraryService) {
				s.EXPECT().
					AddBook(gomock.Any(), gomock.Any()).
					Return("", errs.Store("adding the book", errors.New("db down")))
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"message":"Database error occurred while adding the book."}`,
		},
		{
			name:         "malformed body",
			body:         `{"title":`,
			mockBehavior: func(s *mocks.MockLibraryService) {},
			wantCode:     http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc := newRouter(t)
			tt.mockBehavior(svc)

			rec := doJSON(e, http.MethodPost, "/api/v1/books", tt.body)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				require.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_SearchBooks(t *testing.T) {
	t.Parallel()

	t.Run("hits are returned as a list", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			SearchBooks(gomock.Any(), "dune", "title").
			Return([]model.Book{{ID: 1, ISBN: "1111111111111", Title: "Dune", Author: "Frank Herbert", TotalCopies: 3, AvailableCopies: 2}}, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/books?term=dune&kind=title", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`[{"id":1,"isbn":"1111111111111","title":"Dune","author":"Frank Herbert","totalCopies":3,"availableCopies":2}]`,
			rec.Body.String())
	})

	t.Run("no hits is an empty list, not null", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			SearchBooks(gomock.Any(), "nothing", "title").
			Return([]model.Book{}, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/books?term=nothing&kind=title", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestHandler_BorrowBook(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			BorrowBook(gomock.Any(), "111111", int64(7)).
			Return(`Successfully borrowed "Dune". Due date: 2026-09-12.`, nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/loans", `{"patronId":"111111","bookId":7}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`{"success":true,"message":"Successfully borrowed \"Dune\". Due date: 2026-09-12."}`,
			rec.Body.String())
	})

	t.Run("missing fields fail request validation", func(t *testing.T) {
		t.Parallel()
		e, _ := newRouter(t)

		rec := doJSON(e, http.MethodPost, "/api/v1/loans", `{"patronId":"111111"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("book not found", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			BorrowBook(gomock.Any(), "111111", int64(404)).
			Return("", errs.ErrBookNotFound)

		rec := doJSON(e, http.MethodPost, "/api/v1/loans", `{"patronId":"111111","bookId":404}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.JSONEq(t, `{"message":"Book not found."}`, rec.Body.String())
	})

	t.Run("borrow limit reached", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			BorrowBook(gomock.Any(), "111111", int64(7)).
			Return("", errs.ErrBorrowLimit)

		rec := doJSON(e, http.MethodPost, "/api/v1/loans", `{"patronId":"111111","bookId":7}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"message":"You have reached the maximum borrowing limit of 5 books."}`, rec.Body.String())
	})
}

func TestHandler_ReturnBook(t *testing.T) {
	t.Parallel()

	t.Run("ok with fee in the message", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			ReturnBook(gomock.Any(), "222222", int64(9)).
			Return(`Successfully returned "Hyperion". Overdue by 10 day(s). Late fee: $6.50.`, nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/loans/return", `{"patronId":"222222","bookId":9}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`{"success":true,"message":"Successfully returned \"Hyperion\". Overdue by 10 day(s). Late fee: $6.50."}`,
			rec.Body.String())
	})

	t.Run("loan not found", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			ReturnBook(gomock.Any(), "222222", int64(9)).
			Return("", errs.ErrLoanNotFound)

		rec := doJSON(e, http.MethodPost, "/api/v1/loans/return", `{"patronId":"222222","bookId":9}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.JSONEq(t, `{"message":"Book was not borrowed by patron."}`, rec.Body.String())
	})
}

func TestHandler_PatronStatus(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			PatronStatusReport(gomock.Any(), "444444").
			Return(model.PatronReport{
				PatronID:         "444444",
				BorrowedBooks:    []model.Loan{},
				TotalBorrowed:    0,
				CurrentlyOverdue: 0,
				TotalLateFees:    0,
			}, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/patrons/444444", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`{"patronId":"444444","borrowedBooks":[],"totalBorrowed":0,"currentlyOverdue":0,"totalLateFees":0}`,
			rec.Body.String())
	})

	t.Run("invalid patron id keeps the report shape", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			PatronStatusReport(gomock.Any(), "bogus").
			Return(model.PatronReport{
				BorrowedBooks: []model.Loan{},
				Error:         errs.ErrInvalidPatronID.Error(),
			}, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/patrons/bogus", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t,
			`{"patronId":"","borrowedBooks":[],"totalBorrowed":0,"currentlyOverdue":0,"totalLateFees":0,"error":"Invalid patron ID. Must be exactly 6 digits."}`,
			rec.Body.String())
	})
}

func TestHandler_LateFee(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			CalculateLateFee(gomock.Any(), "333333", int64(5)).
			Return(model.FeeQuote{FeeAmount: 6.50, DaysOverdue: 10}, nil)

		rec := doJSON(e, http.MethodGet, "/api/v1/patrons/333333/books/5/fee", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"feeAmount":6.5,"daysOverdue":10}`, rec.Body.String())
	})

	t.Run("non-numeric book id", func(t *testing.T) {
		t.Parallel()
		e, _ := newRouter(t)

		rec := doJSON(e, http.MethodGet, "/api/v1/patrons/333333/books/abc/fee", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_PayLateFee(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			PayLateFee(gomock.Any(), "666666", int64(3), nil).
			Return(model.PaymentReceipt{
				Message:       "Payment successful! Transaction txn_12345678 completed.",
				TransactionID: "txn_12345678",
			}, nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/payments", `{"patronId":"666666","bookId":3}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`{"success":true,"message":"Payment successful! Transaction txn_12345678 completed.","transactionId":"txn_12345678"}`,
			rec.Body.String())
	})

	t.Run("nothing to pay", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			PayLateFee(gomock.Any(), "666666", int64(3), nil).
			Return(model.PaymentReceipt{}, errs.ErrNoFeesToPay)

		rec := doJSON(e, http.MethodPost, "/api/v1/payments", `{"patronId":"666666","bookId":3}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"message":"No late fees to pay for this book."}`, rec.Body.String())
	})

	t.Run("gateway transport failure maps to bad gateway", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			PayLateFee(gomock.Any(), "666666", int64(3), nil).
			Return(model.PaymentReceipt{}, errs.Gateway("Payment processing", errors.New("connection refused")))

		rec := doJSON(e, http.MethodPost, "/api/v1/payments", `{"patronId":"666666","bookId":3}`)
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.JSONEq(t, `{"message":"Payment processing error: connection refused"}`, rec.Body.String())
	})

	t.Run("declined payment", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			PayLateFee(gomock.Any(), "666666", int64(3), nil).
			Return(model.PaymentReceipt{}, errors.New("Payment failed: Card declined."))

		rec := doJSON(e, http.MethodPost, "/api/v1/payments", `{"patronId":"666666","bookId":3}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"message":"Payment failed: Card declined."}`, rec.Body.String())
	})
}

func TestHandler_RefundLateFee(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			RefundLateFee(gomock.Any(), "txn_12345678", 5.00, nil).
			Return("Refund of $5.00 processed successfully.", nil)

		rec := doJSON(e, http.MethodPost, "/api/v1/payments/refund", `{"transactionId":"txn_12345678","amount":5.00}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`{"success":true,"message":"Refund of $5.00 processed successfully."}`,
			rec.Body.String())
	})

	t.Run("invalid transaction id", func(t *testing.T) {
		t.Parallel()
		e, svc := newRouter(t)
		svc.EXPECT().
			RefundLateFee(gomock.Any(), "12345678", 5.00, nil).
			Return("", errs.ErrInvalidTxnID)

		rec := doJSON(e, http.MethodPost, "/api/v1/payments/refund", `{"transactionId":"12345678","amount":5.00}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"message":"Invalid transaction ID."}`, rec.Body.String())
	})

	t.Run("missing amount fails request validation", func(t *testing.T) {
		t.Parallel()
		e, _ := newRouter(t)

		rec := doJSON(e, http.MethodPost, "/api/v1/payments/refund", `{"transactionId":"txn_12345678"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
