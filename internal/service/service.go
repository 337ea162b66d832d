package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libradesk/library-service/internal/errs"
	"github.com/libradesk/library-service/internal/model"
	libraryRepo "github.com/libradesk/library-service/internal/repository"
	cb "github.com/libradesk/library-service/pkg/circuit_breaker"
	"github.com/libradesk/library-service/pkg/kafka"
)

type Service struct {
	log      *zap.Logger
	repo     libraryRepo.Repository
	producer sarama.SyncProducer
	breaker  cb.CircuitBreaker
}

// NewService wires the domain rules on top of the repository. The producer
// may be nil; loan events are then not published.
func NewService(repo libraryRepo.Repository, producer sarama.SyncProducer, log *zap.Logger) *Service {
	return &Service{
		log:      log.Named("service"),
		repo:     repo,
		producer: producer,
		breaker:  cb.New(20, 30*time.Second, 0.5, 5),
	}
}

func (s *Service) SearchBooks(ctx context.Context, criteria model.SearchCriteria) ([]model.Book, error) {
	if criteria.OrderBy == "default" {
		criteria.OrderBy = ""
	}
	if criteria.OrderBy != "" {
		if _, ok := model.SortableColumns[criteria.OrderBy]; !ok {
			return nil, errors.Wrapf(errs.ErrInvalidInput, "cannot order by %q", criteria.OrderBy)
		}
	}
	return s.repo.SearchBooks(ctx, criteria)
}

func (s *Service) AddBook(ctx context.Context, req model.CreateBookRequest) error {
	return s.repo.CreateBook(ctx, req.Book())
}

func (s *Service) AddCard(ctx context.Context, req model.CreateCardRequest) error {
	return s.repo.CreateCard(ctx, model.Card{
		ID:         req.ID,
		Name:       req.Name,
		Department: req.Department,
		Type:       req.Type,
	})
}

func (s *Service) RemoveCard(ctx context.Context, id string) error {
	return s.repo.DeleteCard(ctx, id)
}

func (s *Service) BorrowBook(ctx context.Context, req model.BorrowRequest, adminID string) (model.Borrow, error) {
	if _, err := s.repo.GetBook(ctx, req.BookID); err != nil {
		return model.Borrow{}, err
	}
	if _, err := s.repo.GetCard(ctx, req.CardID); err != nil {
		return model.Borrow{}, err
	}
	if req.ReturnDate.UTC().Format(time.DateOnly) < today() {
		return model.Borrow{}, errors.Wrap(errs.ErrInvalidInput, "return date before today")
	}

	created, err := s.repo.BorrowBook(ctx, model.Borrow{
		BorrowUID:  uuid.NewString(),
		CardID:     req.CardID,
		BookID:     req.BookID,
		AdminID:    adminID,
		ReturnDate: req.ReturnDate.Time,
	})
	if err != nil {
		return model.Borrow{}, err
	}

	s.publishLoanEvent(kafka.EventBorrowed, created)
	return created, nil
}

func (s *Service) ReturnBook(ctx context.Context, req model.ReturnRequest) (model.Borrow, error) {
	if _, err := s.repo.GetBook(ctx, req.BookID); err != nil {
		return model.Borrow{}, err
	}

	deleted, err := s.repo.ReturnBook(ctx, req.CardID, req.BookID)
	if err != nil {
		return model.Borrow{}, err
	}

	s.publishLoanEvent(kafka.EventReturned, deleted)
	return deleted, nil
}

func (s *Service) NearestReturn(ctx context.Context, bookID string) (time.Time, error) {
	return s.repo.NearestReturn(ctx, bookID)
}

func (s *Service) ListBorrows(ctx context.Context, cardID string) ([]model.Book, error) {
	if _, err := s.repo.GetCard(ctx, cardID); err != nil {
		return nil, err
	}
	return s.repo.ListBorrows(ctx, cardID)
}

// RecordLoanEvent persists an audit row for a consumed loan event.
func (s *Service) RecordLoanEvent(ctx context.Context, event kafka.LoanEvent) error {
	return s.repo.InsertLoanEvent(ctx, event)
}

// publishLoanEvent is best effort: a broker outage must not fail the
// borrow or return that already committed.
func (s *Service) publishLoanEvent(kind kafka.EventKind, borrow model.Borrow) {
	if s.producer == nil {
		return
	}
	event := kafka.LoanEvent{
		EventUID:   uuid.NewString(),
		Kind:       kind,
		CardID:     borrow.CardID,
		BookID:     borrow.BookID,
		AdminID:    borrow.AdminID,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error("marshal loan event", zap.Error(err))
		return
	}
	if err := s.breaker.Call(func() error {
		msg := &sarama.ProducerMessage{Topic: kafka.LoanEventsTopic, Value: sarama.StringEncoder(data)}
		_, _, err := s.producer.SendMessage(msg)
		return err
	}); err != nil {
		s.log.Warn("publish loan event", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// today is the current UTC calendar date, the frame request dates are
// parsed in. Comparing formatted dates keeps same-day return dates valid.
func today() string {
	return time.Now().UTC().Format(time.DateOnly)
}
