package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ilyakh/library-service/library/internal/errs"
	"github.com/ilyakh/library-service/library/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go -package=mocks

// Repository is the catalog's store collaborator. Missing rows come back as
// errs.ErrNotFound; everything else is a raw driver error for the service to
// translate.
type Repository interface {
	GetBookByID(ctx context.Context, id int64) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	GetAllBooks(ctx context.Context) ([]model.Book, error)
	InsertBook(ctx context.Context, title, author, isbn string, total, available int) error
	UpdateBookAvailability(ctx context.Context, bookID int64, delta int) error

	InsertLoan(ctx context.Context, patronID string, bookID int64, borrowDate, dueDate time.Time) error
	GetPatronLoans(ctx context.Context, patronID string) ([]model.Loan, error)
	CountOutstandingLoans(ctx context.Context, patronID string) (int, error)
	SetLoanReturnDate(ctx context.Context, patronID string, bookID int64, date time.Time) error
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName = `books`
	loansTableName = `loans`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) GetBookByID(ctx context.Context, id int64) (model.Book, error) {
	query, args, err := qb.Select("id", "isbn", "title", "author", "total_copies", "available_copies").
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}

	return book, nil
}

func (r *repository) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	query, args, err := qb.Select("id", "isbn", "title", "author", "total_copies", "available_copies").
		From(booksTableName).
		Where(sq.Expr("lower(isbn) = lower(?)", isbn)).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}

	return book, nil
}

func (r *repository) GetAllBooks(ctx context.Context) ([]model.Book, error) {
	query, args, err := qb.Select("id", "isbn", "title", "author", "total_copies", "available_copies").
		From(booksTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) InsertBook(ctx context.Context, title, author, isbn string, total, available int) error {
	query, args, err := qb.Insert(booksTableName).
		Columns("isbn", "title", "author", "total_copies", "available_copies").
		Values(isbn, title, author, total, available).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return errs.ErrDuplicateISBN
		}
		r.log.Error("InsertBook", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return err
	}
	return nil
}

// UpdateBookAvailability applies delta (+1 or -1) to available_copies. The
// check constraint keeps the count within [0, total_copies].
func (r *repository) UpdateBookAvailability(ctx context.Context, bookID int64, delta int) error {
	q := `
update books
    set available_copies = available_copies + $2
where id = $1`
	res, err := r.db.ExecContext(ctx, q, bookID, delta)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) InsertLoan(ctx context.Context, patronID string, bookID int64, borrowDate, dueDate time.Time) error {
	query, args, err := qb.Insert(loansTableName).
		Columns("loan_uid", "patron_id", "book_id", "borrow_date", "due_date").
		Values(uuid.New(), patronID, bookID, borrowDate, dueDate).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("InsertLoan", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return err
	}
	return nil
}

func (r *repository) GetPatronLoans(ctx context.Context, patronID string) ([]model.Loan, error) {
	query, args, err := qb.Select("id", "loan_uid", "patron_id", "book_id", "borrow_date", "due_date", "return_date",
		"(return_date is null and due_date < now()) as is_overdue").
		From(loansTableName).
		Where(sq.Eq{"patron_id": patronID}).
		OrderBy("borrow_date").
		ToSql()
	if err != nil {
		return nil, err
	}

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *repository) CountOutstandingLoans(ctx context.Context, patronID string) (int, error) {
	q := `
	select count(*) from loans
	where patron_id = $1 and return_date is null
`
	var count int
	if err := r.db.QueryRowContext(ctx, q, patronID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SetLoanReturnDate closes the patron's open loan for the book. A loan that
// is already returned does not match, so a second return of the same book
// reports errs.ErrNotFound.
func (r *repository) SetLoanReturnDate(ctx context.Context, patronID string, bookID int64, date time.Time) error {
	q := `
update loans
    set return_date = $3
where patron_id = $1 and book_id = $2 and return_date is null`
	res, err := r.db.ExecContext(ctx, q, patronID, bookID, date)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
