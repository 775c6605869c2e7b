package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single recorded monetary movement. The sign of Amount
// carries the direction: positive is income, negative is expense. There is
// no separate type column.
type Transaction struct {
	ID        int64           `json:"id"         db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	UserID    string          `json:"user_id"    db:"user_id"    gorm:"column:user_id;not null;index"`
	Title     string          `json:"title"      db:"title"      gorm:"column:title;not null"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"     gorm:"column:amount;type:decimal(10,2);not null"`
	Category  string          `json:"category"   db:"category"   gorm:"column:category;not null"`
	CreatedAt time.Time       `json:"created_at" db:"created_at" gorm:"column:created_at;type:date;autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// Summary is derived on demand from a user's transactions and never
// persisted. Expenses are kept negative, so Balance == Income + Expenses.
type Summary struct {
	Balance  decimal.Decimal `json:"balance"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// TransactionCreateRequest is the input for recording a transaction.
// Amount is a pointer so an absent field can be told apart from zero.
type TransactionCreateRequest struct {
	UserID   string
	Title    string
	Category string
	Amount   *decimal.Decimal
}

func (p TransactionCreateRequest) Validate() error {
	if p.UserID == "" {
		return errors.New("user_id is required")
	}
	if p.Title == "" {
		return errors.New("title is required")
	}
	if p.Category == "" {
		return errors.New("category is required")
	}
	if p.Amount == nil {
		return errors.New("amount is required")
	}
	return nil
}
