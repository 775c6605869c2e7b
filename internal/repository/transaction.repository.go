package repository

import (
	"context"
	"errors"

	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// ListByUser returns every transaction of one user, newest first. Ties on
// created_at fall back to insertion order. Zero rows is a valid result,
// not an error.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toTransactionModels(entities), nil
}

// DeleteByID removes the row and returns its prior contents. The load and
// the delete run in one storage transaction so the returned row is exactly
// what was removed.
func (r *TransactionRepository) DeleteByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		err := r.Write(ctx).WithContext(ctx).
			Where("id = ?", id).
			First(&entity).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		result := r.Write(ctx).WithContext(ctx).Delete(&TransactionEntity{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toTransactionModel(&entity), nil
}

type summaryRow struct {
	Balance  decimal.Decimal `db:"balance"`
	Income   decimal.Decimal `db:"income"`
	Expenses decimal.Decimal `db:"expenses"`
}

// SummaryByUser aggregates the signed amounts of one user. A user with no
// rows gets all-zero aggregates.
func (r *TransactionRepository) SummaryByUser(ctx context.Context, userID string) (*model.Summary, error) {
	var row summaryRow
	err := r.Read(ctx).WithContext(ctx).
		Raw(`SELECT
		        COALESCE(SUM(amount), 0)                                    AS balance,
		        COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS income,
		        COALESCE(SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END), 0) AS expenses
		     FROM transactions
		     WHERE user_id = ?`, userID).
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}

	return &model.Summary{
		Balance:  row.Balance,
		Income:   row.Income,
		Expenses: row.Expenses,
	}, nil
}
