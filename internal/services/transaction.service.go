package services

import (
	"context"
	goerrors "errors"
	"strings"

	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/repository"
	"github.com/pkg/errors"
)

var (
	// ErrValidation marks missing or malformed input. Handlers render it
	// as 400.
	ErrValidation = goerrors.New("invalid input")
	// ErrNotFound marks an operation on a nonexistent transaction.
	// Handlers render it as 404.
	ErrNotFound = goerrors.New("transaction not found")
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error)
	DeleteByID(ctx context.Context, id int64) (*model.Transaction, error)
	SummaryByUser(ctx context.Context, userID string) (*model.Summary, error)
}

type TransactionService struct {
	repo TransactionRepository
}

func NewTransactionService(repo TransactionRepository) *TransactionService {
	return &TransactionService{
		repo: repo,
	}
}

func (s *TransactionService) Create(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error) {
	p.UserID = strings.TrimSpace(p.UserID)
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.TrimSpace(p.Category)

	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	txn := &model.Transaction{
		UserID:   p.UserID,
		Title:    p.Title,
		Category: p.Category,
		// The column is DECIMAL(10,2); round here so the stored row and
		// the returned one agree.
		Amount: p.Amount.Round(2),
	}

	return s.repo.Create(ctx, txn)
}

func (s *TransactionService) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *TransactionService) DeleteByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if id <= 0 {
		return nil, errors.Wrap(ErrValidation, "transaction id must be a positive integer")
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return deleted, nil
}

func (s *TransactionService) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	return s.repo.SummaryByUser(ctx, userID)
}
