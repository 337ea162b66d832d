package handler

import (
	"context"
	"time"

	"github.com/libradesk/library-service/internal/model"
	"github.com/libradesk/library-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	SearchBooks(ctx context.Context, criteria model.SearchCriteria) ([]model.Book, error)
	AddBook(ctx context.Context, req model.CreateBookRequest) error
	ImportBooks(ctx context.Context, path string) (int, error)

	AddCard(ctx context.Context, req model.CreateCardRequest) error
	RemoveCard(ctx context.Context, id string) error

	BorrowBook(ctx context.Context, req model.BorrowRequest, adminID string) (model.Borrow, error)
	ReturnBook(ctx context.Context, req model.ReturnRequest) (model.Borrow, error)
	NearestReturn(ctx context.Context, bookID string) (time.Time, error)
	ListBorrows(ctx context.Context, cardID string) ([]model.Book, error)

	Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error)
	RegisterAdmin(ctx context.Context, req model.CreateAdminRequest) error
}

var _ LibraryService = (*service.Service)(nil)
