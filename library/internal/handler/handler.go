package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/model"
	"github.com/ilyakh/library-service/pkg/kafka"
	md "github.com/ilyakh/library-service/pkg/middleware"
	"github.com/ilyakh/library-service/pkg/validate"
	_ "github.com/ilyakh/library-service/swagger"
)

type Handler struct {
	librarySvc LibraryService
	enqueuer   Enqueuer
	log        *zap.Logger
}

func New(librarySvc LibraryService, enqueuer Enqueuer, log *zap.Logger) *Handler {
	h := &Handler{
		librarySvc: librarySvc,
		enqueuer:   enqueuer,
		log:        log,
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/books", h.AddBook)
	api.GET("/books", h.SearchBooks)

	api.POST("/loans", h.BorrowBook)
	api.POST("/loans/return", h.ReturnBook)

	api.GET("/patrons/:patronId", h.PatronStatus)
	api.GET("/patrons/:patronId/books/:bookId/fee", h.LateFee)

	api.POST("/payments", h.PayLateFee)
	api.POST("/payments/refund", h.RefundLateFee)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// httpError maps the service's rule outcomes onto HTTP statuses. The message
// always reaches the caller verbatim.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrBookNotFound), errors.Is(err, errs.ErrLoanNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrDuplicateISBN):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errs.IsStore(err):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case errs.IsGateway(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) AddBook(c echo.Context) error {
	var req model.AddBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.librarySvc.AddBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, statusResponse{Success: true, Message: msg})
}

func (h *Handler) SearchBooks(c echo.Context) error {
	term := c.QueryParam("term")
	kind := c.QueryParam("kind")

	books, err := h.librarySvc.SearchBooks(c.Request().Context(), term, kind)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) BorrowBook(c echo.Context) error {
	var req model.LoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	msg, err := h.librarySvc.BorrowBook(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		return httpError(err)
	}

	if err := h.enqueuer.Enqueue(kafka.LoanEventsTopic, model.LoanEvent{
		Kind:     model.LoanEventBorrowed,
		PatronID: req.PatronID,
		BookID:   req.BookID,
		At:       time.Now(),
	}); err != nil {
		h.log.Warn("enqueue loan event", zap.Error(err))
	}

	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: msg})
}

func (h *Handler) ReturnBook(c echo.Context) error {
	var req model.LoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	msg, err := h.librarySvc.ReturnBook(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		return httpError(err)
	}

	if err := h.enqueuer.Enqueue(kafka.LoanEventsTopic, model.LoanEvent{
		Kind:     model.LoanEventReturned,
		PatronID: req.PatronID,
		BookID:   req.BookID,
		At:       time.Now(),
	}); err != nil {
		h.log.Warn("enqueue loan event", zap.Error(err))
	}

	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: msg})
}

func (h *Handler) PatronStatus(c echo.Context) error {
	patronID := c.Param("patronId")

	report, err := h.librarySvc.PatronStatusReport(c.Request().Context(), patronID)
	if err != nil {
		return httpError(err)
	}
	if report.Error != "" {
		return c.JSON(http.StatusBadRequest, report)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) LateFee(c echo.Context) error {
	patronID := c.Param("patronId")
	bookID, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("bookId is invalid"))
	}

	quote, err := h.librarySvc.CalculateLateFee(c.Request().Context(), patronID, bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, quote)
}

type paymentResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
}

func (h *Handler) PayLateFee(c echo.Context) error {
	var req model.PayFeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	receipt, err := h.librarySvc.PayLateFee(c.Request().Context(), req.PatronID, req.BookID, nil)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, paymentResponse{
		Success:       true,
		Message:       receipt.Message,
		TransactionID: receipt.TransactionID,
	})
}

func (h *Handler) RefundLateFee(c echo.Context) error {
	var req model.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	msg, err := h.librarySvc.RefundLateFee(c.Request().Context(), req.TransactionID, req.Amount, nil)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: msg})
}
