package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/libradesk/library-service/internal/errs"
	"github.com/libradesk/library-service/internal/model"
	"github.com/libradesk/library-service/internal/service"
	"github.com/libradesk/library-service/pkg/kafka"
)

// stubRepo implements repository.Repository through optional function
// fields; unset methods return zero values.
type stubRepo struct {
	searchBooks   func(ctx context.Context, criteria model.SearchCriteria) ([]model.Book, error)
	getBook       func(ctx context.Context, id string) (model.Book, error)
	createBook    func(ctx context.Context, book model.Book) error
	createBooks   func(ctx context.Context, books []model.Book) error
	createCard    func(ctx context.Context, card model.Card) error
	getCard       func(ctx context.Context, id string) (model.Card, error)
	deleteCard    func(ctx context.Context, id string) error
	createAdmin   func(ctx context.Context, admin model.Admin) error
	getAdmin      func(ctx context.Context, id string) (model.Admin, error)
	borrowBook    func(ctx context.Context, borrow model.Borrow) (model.Borrow, error)
	returnBook    func(ctx context.Context, cardID, bookID string) (model.Borrow, error)
	nearestReturn func(ctx context.Context, bookID string) (time.Time, error)
	listBorrows   func(ctx context.Context, cardID string) ([]model.Book, error)
	insertEvent   func(ctx context.Context, event kafka.LoanEvent) error
}

func (s *stubRepo) SearchBooks(ctx context.Context, criteria model.SearchCriteria) ([]model.Book, error) {
	if s.searchBooks != nil {
		return s.searchBooks(ctx, criteria)
	}
	return nil, nil
}

func (s *stubRepo) GetBook(ctx context.Context, id string) (model.Book, error) {
	if s.getBook != nil {
		return s.getBook(ctx, id)
	}
	return model.Book{ID: id}, nil
}

func (s *stubRepo) CreateBook(ctx context.Context, book model.Book) error {
	if s.createBook != nil {
		return s.createBook(ctx, book)
	}
	return nil
}

func (s *stubRepo) CreateBooks(ctx context.Context, books []model.Book) error {
	if s.createBooks != nil {
		return s.createBooks(ctx, books)
	}
	return nil
}

func (s *stubRepo) CreateCard(ctx context.Context, card model.Card) error {
	if s.createCard != nil {
		return s.createCard(ctx, card)
	}
	return nil
}

func (s *stubRepo) GetCard(ctx context.Context, id string) (model.Card, error) {
	if s.getCard != nil {
		return s.getCard(ctx, id)
	}
	return model.Card{ID: id}, nil
}

func (s *stubRepo) DeleteCard(ctx context.Context, id string) error {
	if s.deleteCard != nil {
		return s.deleteCard(ctx, id)
	}
	return nil
}

func (s *stubRepo) CreateAdmin(ctx context.Context, admin model.Admin) error {
	if s.createAdmin != nil {
		return s.createAdmin(ctx, admin)
	}
	return nil
}

func (s *stubRepo) GetAdmin(ctx context.Context, id string) (model.Admin, error) {
	if s.getAdmin != nil {
		return s.getAdmin(ctx, id)
	}
	return model.Admin{ID: id}, nil
}

func (s *stubRepo) BorrowBook(ctx context.Context, borrow model.Borrow) (model.Borrow, error) {
	if s.borrowBook != nil {
		return s.borrowBook(ctx, borrow)
	}
	return borrow, nil
}

func (s *stubRepo) ReturnBook(ctx context.Context, cardID, bookID string) (model.Borrow, error) {
	if s.returnBook != nil {
		return s.returnBook(ctx, cardID, bookID)
	}
	return model.Borrow{CardID: cardID, BookID: bookID}, nil
}

func (s *stubRepo) NearestReturn(ctx context.Context, bookID string) (time.Time, error) {
	if s.nearestReturn != nil {
		return s.nearestReturn(ctx, bookID)
	}
	return time.Time{}, nil
}

func (s *stubRepo) ListBorrows(ctx context.Context, cardID string) ([]model.Book, error) {
	if s.listBorrows != nil {
		return s.listBorrows(ctx, cardID)
	}
	return nil, nil
}

func (s *stubRepo) InsertLoanEvent(ctx context.Context, event kafka.LoanEvent) error {
	if s.insertEvent != nil {
		return s.insertEvent(ctx, event)
	}
	return nil
}

func newService(repo *stubRepo) *service.Service {
	return service.NewService(repo, nil, zap.NewExample().Named("test"))
}

func borrowReq(returnDate time.Time) model.BorrowRequest {
	return model.BorrowRequest{
		CardID:     "1",
		BookID:     "1",
		ReturnDate: model.Date{Time: returnDate},
	}
}

func TestService_BorrowBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tomorrow := time.Now().AddDate(0, 0, 1)

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		var got model.Borrow
		repo := &stubRepo{
			borrowBook: func(_ context.Context, b model.Borrow) (model.Borrow, error) {
				got = b
				return b, nil
			},
		}
		svc := newService(repo)

		created, err := svc.BorrowBook(ctx, borrowReq(tomorrow), "roy")
		require.NoError(t, err)
		require.Equal(t, "1", got.CardID)
		require.Equal(t, "1", got.BookID)
		require.Equal(t, "roy", got.AdminID)
		_, err = uuid.Parse(got.BorrowUID)
		require.NoError(t, err)
		require.Equal(t, got, created)
	})

	t.Run("ok. return date today", func(t *testing.T) {
		t.Parallel()
		borrowed := false
		repo := &stubRepo{
			borrowBook: func(_ context.Context, b model.Borrow) (model.Borrow, error) {
				borrowed = true
				return b, nil
			},
		}
		svc := newService(repo)

		now := time.Now().UTC()
		todayUTC := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		_, err := svc.BorrowBook(ctx, borrowReq(todayUTC), "roy")
		require.NoError(t, err)
		require.True(t, borrowed)
	})

	t.Run("err. book not found", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			getBook: func(_ context.Context, id string) (model.Book, error) {
				return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book with id %q", id)
			},
		}
		svc := newService(repo)

		_, err := svc.BorrowBook(ctx, borrowReq(tomorrow), "roy")
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("err. card not found", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			getCard: func(_ context.Context, id string) (model.Card, error) {
				return model.Card{}, errors.Wrapf(errs.ErrNotFound, "card with id %q", id)
			},
		}
		svc := newService(repo)

		_, err := svc.BorrowBook(ctx, borrowReq(tomorrow), "roy")
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("err. return date before today", func(t *testing.T) {
		t.Parallel()
		borrowed := false
		repo := &stubRepo{
			borrowBook: func(_ context.Context, b model.Borrow) (model.Borrow, error) {
				borrowed = true
				return b, nil
			},
		}
		svc := newService(repo)

		yesterday := time.Now().AddDate(0, 0, -1)
		_, err := svc.BorrowBook(ctx, borrowReq(yesterday), "roy")
		require.ErrorIs(t, err, errs.ErrInvalidInput)
		require.False(t, borrowed)
	})

	t.Run("err. no stock", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			borrowBook: func(_ context.Context, b model.Borrow) (model.Borrow, error) {
				return model.Borrow{}, errors.Wrapf(errs.ErrForbidden, "not enough copies of book with id %q", b.BookID)
			},
		}
		svc := newService(repo)

		_, err := svc.BorrowBook(ctx, borrowReq(tomorrow), "roy")
		require.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestService_ReturnBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc := newService(&stubRepo{})

		deleted, err := svc.ReturnBook(ctx, model.ReturnRequest{CardID: "1", BookID: "1"})
		require.NoError(t, err)
		require.Equal(t, "1", deleted.CardID)
		require.Equal(t, "1", deleted.BookID)
	})

	t.Run("err. book not found", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			getBook: func(_ context.Context, id string) (model.Book, error) {
				return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book with id %q", id)
			},
		}
		svc := newService(repo)

		_, err := svc.ReturnBook(ctx, model.ReturnRequest{CardID: "1", BookID: "42"})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("err. no matching record", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			returnBook: func(_ context.Context, cardID, bookID string) (model.Borrow, error) {
				return model.Borrow{}, errors.Wrapf(errs.ErrNotFound,
					"record with card id %q borrowing book id %q", cardID, bookID)
			},
		}
		svc := newService(repo)

		_, err := svc.ReturnBook(ctx, model.ReturnRequest{CardID: "1", BookID: "1"})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_SearchBooks_OrderBy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	searched := false
	var seen model.SearchCriteria
	repo := &stubRepo{
		searchBooks: func(_ context.Context, c model.SearchCriteria) ([]model.Book, error) {
			searched = true
			seen = c
			return nil, nil
		},
	}
	svc := newService(repo)

	_, err := svc.SearchBooks(ctx, model.SearchCriteria{OrderBy: "drop table"})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	require.False(t, searched)

	_, err = svc.SearchBooks(ctx, model.SearchCriteria{OrderBy: "price", Descending: true})
	require.NoError(t, err)
	require.True(t, searched)
	require.Equal(t, "price", seen.OrderBy)

	_, err = svc.SearchBooks(ctx, model.SearchCriteria{OrderBy: "default"})
	require.NoError(t, err)
	require.Empty(t, seen.OrderBy)
}

func TestService_ListBorrows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("err. card not found", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			getCard: func(_ context.Context, id string) (model.Card, error) {
				return model.Card{}, errors.Wrapf(errs.ErrNotFound, "card with id %q", id)
			},
		}
		svc := newService(repo)

		_, err := svc.ListBorrows(ctx, "42")
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		repo := &stubRepo{
			listBorrows: func(_ context.Context, cardID string) ([]model.Book, error) {
				return []model.Book{{ID: "1", Title: "db"}}, nil
			},
		}
		svc := newService(repo)

		books, err := svc.ListBorrows(ctx, "1")
		require.NoError(t, err)
		require.Len(t, books, 1)
		require.Equal(t, "1", books[0].ID)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := model.Admin{ID: "roy", PasswordHash: string(hash), Name: "Roy", Contact: "roy@library"}

	repo := &stubRepo{
		getAdmin: func(_ context.Context, id string) (model.Admin, error) {
			if id != admin.ID {
				return model.Admin{}, errors.Wrapf(errs.ErrNotFound, "admin with id %q", id)
			}
			return admin, nil
		},
	}
	svc := newService(repo)

	t.Run("ok", func(t *testing.T) {
		resp, err := svc.Login(ctx, model.LoginRequest{ID: "roy", Password: "pass"})
		require.NoError(t, err)
		require.Equal(t, admin.ID, resp.Admin.ID)
		require.NotEmpty(t, resp.Token)
	})

	t.Run("err. wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{ID: "roy", Password: "wrongpass"})
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("err. unknown admin", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{ID: "nobody", Password: "x"})
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_ImportBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "books.txt")
		content := "(1,cs,db,mit,2019,wjk,2.35,3)\n(2,novel,dune,ace,1965,herbert,5.99,2)\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		var got []model.Book
		repo := &stubRepo{
			createBooks: func(_ context.Context, books []model.Book) error {
				got = books
				return nil
			},
		}
		svc := newService(repo)

		n, err := svc.ImportBooks(ctx, path)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Len(t, got, 2)
		require.Equal(t, "dune", got[1].Title)
	})

	t.Run("err. missing file", func(t *testing.T) {
		t.Parallel()
		svc := newService(&stubRepo{})

		_, err := svc.ImportBooks(ctx, filepath.Join(t.TempDir(), "nope.txt"))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("err. duplicate id rolls back", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "books.txt")
		require.NoError(t, os.WriteFile(path, []byte("(1,cs,db,mit,2019,wjk,2.35,3)\n"), 0o644))

		repo := &stubRepo{
			createBooks: func(_ context.Context, books []model.Book) error {
				return errors.Wrap(errs.ErrConflict, `duplicate key value violates unique constraint "books_pkey"`)
			},
		}
		svc := newService(repo)

		_, err := svc.ImportBooks(ctx, path)
		require.ErrorIs(t, err, errs.ErrConflict)
	})
}

func TestService_RegisterAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var created model.Admin
	repo := &stubRepo{
		createAdmin: func(_ context.Context, admin model.Admin) error {
			created = admin
			return nil
		},
	}
	svc := newService(repo)

	err := svc.RegisterAdmin(ctx, model.CreateAdminRequest{
		ID:       "roy",
		Password: "pass",
		Name:     "Roy",
		Contact:  "roy@library",
	})
	require.NoError(t, err)
	require.Equal(t, "roy", created.ID)
	require.NotEqual(t, "pass", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("pass")))
}
