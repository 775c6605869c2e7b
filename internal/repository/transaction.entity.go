package repository

import (
	"time"

	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	ID        int64           `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	UserID    string          `db:"user_id"    gorm:"column:user_id;not null;index"`
	Title     string          `db:"title"      gorm:"column:title;not null"`
	Amount    decimal.Decimal `db:"amount"     gorm:"column:amount;type:decimal(10,2);not null"`
	Category  string          `db:"category"   gorm:"column:category;not null"`
	CreatedAt time.Time       `db:"created_at" gorm:"column:created_at;type:date;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Amount:    m.Amount,
		Category:  m.Category,
		CreatedAt: m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Amount:    e.Amount,
		Category:  e.Category,
		CreatedAt: e.CreatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
