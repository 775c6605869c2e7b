package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) DeleteByID(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SummaryByUser(ctx context.Context, userID string) (*model.Summary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Summary), args.Error(1)
}

func amount(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a valid request", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		service := NewTransactionService(repo)

		req := model.TransactionCreateRequest{
			UserID:   "u1",
			Title:    "Paycheck",
			Category: "salary",
			Amount:   amount("1000.00"),
		}

		created := &model.Transaction{
			ID:       1,
			UserID:   "u1",
			Title:    "Paycheck",
			Category: "salary",
			Amount:   *amount("1000.00"),
		}

		repo.On("Create", ctx, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.UserID == "u1" && txn.Title == "Paycheck" && txn.Amount.Equal(*amount("1000.00"))
		})).Return(created, nil)

		result, err := service.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.ID)

		repo.AssertExpectations(t)
	})

	t.Run("rejects missing fields without touching storage", func(t *testing.T) {
		cases := []model.TransactionCreateRequest{
			{Title: "Paycheck", Category: "salary", Amount: amount("10")},
			{UserID: "u1", Category: "salary", Amount: amount("10")},
			{UserID: "u1", Title: "Paycheck", Amount: amount("10")},
			{UserID: "u1", Title: "Paycheck", Category: "salary"},
			{UserID: "  ", Title: "Paycheck", Category: "salary", Amount: amount("10")},
		}

		for _, req := range cases {
			repo := new(MockTransactionRepository)
			service := NewTransactionService(repo)

			result, err := service.Create(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, result)
			repo.AssertNotCalled(t, "Create")
		}
	})

	t.Run("rounds the amount to two fractional digits", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		service := NewTransactionService(repo)

		repo.On("Create", ctx, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.Amount.Equal(*amount("-4.57"))
		})).Return(&model.Transaction{ID: 2, Amount: *amount("-4.57")}, nil)

		_, err := service.Create(ctx, model.TransactionCreateRequest{
			UserID:   "u1",
			Title:    "Coffee",
			Category: "food",
			Amount:   amount("-4.567"),
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestTransactionService_ListByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("empty result passes through as a valid outcome", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		service := NewTransactionService(repo)

		repo.On("ListByUser", ctx, "nobody").Return([]*model.Transaction{}, nil)

		txns, err := service.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, txns)
	})

	t.Run("storage errors propagate", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		service := NewTransactionService(repo)

		repo.On("ListByUser", ctx, "u1").Return(nil, errors.New("connection reset"))

		_, err := service.ListByUser(ctx, "u1")
		assert.Error(t, err)
	})
}

func TestTransactionService_DeleteByID(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive ids without touching storage", func(t *testing.T) {
		for _, id := range []int64{0, -5} {
			repo := new(MockTransactionRepository)
			service := NewTransactionService(repo)

			result, err := service.DeleteByID(ctx, id)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, result)
			repo.AssertNotCalled(t, "DeleteByID")
		}
	})

	t.Run("maps repository not-found", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		service := NewTransactionService(repo)

		repo.On("DeleteByID", ctx, int64(42)).Return(nil, repository.ErrNotFound)

		_, err := service.DeleteByID(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns the deleted row", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		service := NewTransactionService(repo)

		deleted := &model.Transaction{ID: 7, UserID: "u1", Title: "Coffee", Amount: *amount("-4.50")}
		repo.On("DeleteByID", ctx, int64(7)).Return(deleted, nil)

		result, err := service.DeleteByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, deleted, result)
	})
}

func TestTransactionService_Summary(t *testing.T) {
	ctx := context.Background()

	repo := new(MockTransactionRepository)
	service := NewTransactionService(repo)

	summary := &model.Summary{
		Balance:  *amount("995.50"),
		Income:   *amount("1000.00"),
		Expenses: *amount("-4.50"),
	}
	repo.On("SummaryByUser", ctx, "u1").Return(summary, nil)

	result, err := service.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(result.Income.Add(result.Expenses)))
}
