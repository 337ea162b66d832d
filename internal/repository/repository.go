package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libradesk/library-service/internal/errs"
	"github.com/libradesk/library-service/internal/model"
	"github.com/libradesk/library-service/pkg/kafka"
)

type Repository interface {
	SearchBooks(ctx context.Context, criteria model.SearchCriteria) ([]model.Book, error)
	GetBook(ctx context.Context, id string) (model.Book, error)
	CreateBook(ctx context.Context, book model.Book) error
	CreateBooks(ctx context.Context, books []model.Book) error

	CreateCard(ctx context.Context, card model.Card) error
	GetCard(ctx context.Context, id string) (model.Card, error)
	DeleteCard(ctx context.Context, id string) error

	CreateAdmin(ctx context.Context, admin model.Admin) error
	GetAdmin(ctx context.Context, id string) (model.Admin, error)

	BorrowBook(ctx context.Context, borrow model.Borrow) (model.Borrow, error)
	ReturnBook(ctx context.Context, cardID, bookID string) (model.Borrow, error)
	NearestReturn(ctx context.Context, bookID string) (time.Time, error)
	ListBorrows(ctx context.Context, cardID string) ([]model.Book, error)

	InsertLoanEvent(ctx context.Context, event kafka.LoanEvent) error
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
	booksTableName      = `books`
	cardsTableName      = `cards`
	adminsTableName     = `admins`
	borrowsTableName    = `borrows`
	loanEventsTableName = `loan_events`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var bookColumns = []string{"id", "type", "title", "publisher", "year", "author", "price", "total", "stock"}

// wrapConstraint turns integrity-constraint violations (duplicate primary
// key, failed CHECK) into ErrConflict carrying the engine message.
func wrapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return errors.Wrap(errs.ErrConflict, pgErr.Message)
	}
	return err
}

func (r *repository) GetBook(ctx context.Context, id string) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
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
			return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book with id %q", id)
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) error {
	query, args, err := qb.Insert(booksTableName).
		Columns(bookColumns...).
		Values(book.ID, book.Type, book.Title, book.Publisher, book.Year, book.Author, book.Price, book.Total, book.Stock).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return wrapConstraint(err)
	}
	return nil
}

// CreateBooks inserts the whole batch in one transaction: any failing row
// rolls back every prior insert.
func (r *repository) CreateBooks(ctx context.Context, books []model.Book) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, book := range books {
		query, args, err := qb.Insert(booksTableName).
			Columns(bookColumns...).
			Values(book.ID, book.Type, book.Title, book.Publisher, book.Year, book.Author, book.Price, book.Total, book.Stock).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrapConstraint(err)
		}
	}
	return tx.Commit()
}

func (r *repository) CreateCard(ctx context.Context, card model.Card) error {
	query, args, err := qb.Insert(cardsTableName).
		Columns("id", "name", "department", "type").
		Values(card.ID, card.Name, card.Department, card.Type).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapConstraint(err)
	}
	return nil
}

func (r *repository) GetCard(ctx context.Context, id string) (model.Card, error) {
	query, args, err := qb.Select("id", "name", "department", "type").
		From(cardsTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Card{}, err
	}

	var card model.Card
	if err := r.db.GetContext(ctx, &card, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Card{}, errors.Wrapf(errs.ErrNotFound, "card with id %q", id)
		}
		return model.Card{}, err
	}
	return card, nil
}

// DeleteCard removes the card; its outstanding ledger rows go with it
// through the FK cascade.
func (r *repository) DeleteCard(ctx context.Context, id string) error {
	query, args, err := qb.Delete(cardsTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(errs.ErrNotFound, "card with id %q", id)
	}
	return nil
}

func (r *repository) CreateAdmin(ctx context.Context, admin model.Admin) error {
	query, args, err := qb.Insert(adminsTableName).
		Columns("id", "password_hash", "name", "contact").
		Values(admin.ID, admin.PasswordHash, admin.Name, admin.Contact).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapConstraint(err)
	}
	return nil
}

func (r *repository) GetAdmin(ctx context.Context, id string) (model.Admin, error) {
	query, args, err := qb.Select("id", "password_hash", "name", "contact").
		From(adminsTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Admin{}, err
	}

	var admin model.Admin
	if err := r.db.GetContext(ctx, &admin, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Admin{}, errors.Wrapf(errs.ErrNotFound, "admin with id %q", id)
		}
		return model.Admin{}, err
	}
	return admin, nil
}

// BorrowBook decrements the book's stock and writes the ledger row in one
// transaction. A stock of zero leaves the guarded update with no rows and
// fails with ErrForbidden.
func (r *repository) BorrowBook(ctx context.Context, borrow model.Borrow) (model.Borrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrow{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`update books set stock = stock - 1 where id = $1 and stock > 0`, borrow.BookID)
	if err != nil {
		return model.Borrow{}, wrapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Borrow{}, err
	}
	if n == 0 {
		return model.Borrow{}, errors.Wrapf(errs.ErrForbidden, "not enough copies of book with id %q", borrow.BookID)
	}

	query, args, err := qb.Insert(borrowsTableName).
		Columns("borrow_uid", "card_id", "book_id", "admin_id", "return_date").
		Values(borrow.BorrowUID, borrow.CardID, borrow.BookID, borrow.AdminID, borrow.ReturnDate.Format(time.DateOnly)).
		Suffix("returning id, borrow_uid, card_id, book_id, admin_id, borrow_date, return_date").
		ToSql()
	if err != nil {
		return model.Borrow{}, err
	}
	var created model.Borrow
	if err := tx.GetContext(ctx, &created, query, args...); err != nil {
		r.log.Error("BorrowBook", zap.String("q", query), zap.Any("args", args))
		return model.Borrow{}, wrapConstraint(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Borrow{}, wrapConstraint(err)
	}
	return created, nil
}

// ReturnBook deletes the oldest ledger row matching (card, book) and gives
// the copy back to stock, both in one transaction.
func (r *repository) ReturnBook(ctx context.Context, cardID, bookID string) (model.Borrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrow{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	q := `
delete from borrows
where id = (
    select id from borrows
    where card_id = $1 and book_id = $2
    order by id
    limit 1
)
returning id, borrow_uid, card_id, book_id, admin_id, borrow_date, return_date`

	var deleted model.Borrow
	if err := tx.GetContext(ctx, &deleted, q, cardID, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Borrow{}, errors.Wrapf(errs.ErrNotFound,
				"record with card id %q borrowing book id %q", cardID, bookID)
		}
		return model.Borrow{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`update books set stock = stock + 1 where id = $1`, bookID); err != nil {
		return model.Borrow{}, wrapConstraint(err)
	}

	if err := tx.Commit(); err != nil {
		return model.Borrow{}, wrapConstraint(err)
	}
	return deleted, nil
}

// NearestReturn reports the soonest promised return date among the book's
// outstanding loans.
func (r *repository) NearestReturn(ctx context.Context, bookID string) (time.Time, error) {
	q := `select min(return_date) from borrows where book_id = $1`

	var nearest sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, bookID).Scan(&nearest); err != nil {
		return time.Time{}, err
	}
	if !nearest.Valid {
		return time.Time{}, errors.Wrapf(errs.ErrNotFound, "no outstanding loans for book with id %q", bookID)
	}
	return nearest.Time, nil
}

func (r *repository) ListBorrows(ctx context.Context, cardID string) ([]model.Book, error) {
	query, args, err := qb.Select(
		"b.id", "b.type", "b.title", "b.publisher", "b.year", "b.author", "b.price", "b.total", "b.stock").
		From(booksTableName + " b").
		Join(borrowsTableName + " br on b.id = br.book_id").
		Where(sq.Eq{"br.card_id": cardID}).
		OrderBy("br.id").
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

func (r *repository) InsertLoanEvent(ctx context.Context, event kafka.LoanEvent) error {
	query, args, err := qb.Insert(loanEventsTableName).
		Columns("event_uid", "kind", "card_id", "book_id", "admin_id", "occurred_at").
		Values(event.EventUID, event.Kind, event.CardID, event.BookID, event.AdminID, event.OccurredAt).
		Suffix("on conflict (event_uid) do nothing").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}
