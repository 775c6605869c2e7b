package fixtures

import (
	"time"

	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/shopspring/decimal"
)

const (
	TestUserAlice = "user-alice"
	TestUserBob   = "user-bob"
	TestUserEmpty = "user-with-no-history"
)

func Amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("fixtures: bad amount " + s)
	}
	return d
}

func NewTestTransaction(userID, title, category, amount string) *model.Transaction {
	return &model.Transaction{
		UserID:    userID,
		Title:     title,
		Category:  category,
		Amount:    Amount(amount),
		CreatedAt: time.Now(),
	}
}

func NewTestCreateRequest(userID, title, category, amount string) model.TransactionCreateRequest {
	a := Amount(amount)
	return model.TransactionCreateRequest{
		UserID:   userID,
		Title:    title,
		Category: category,
		Amount:   &a,
	}
}

// A small realistic history: 1000.00 income, -4.50 expense, balance 995.50.
func AliceHistory() []model.TransactionCreateRequest {
	return []model.TransactionCreateRequest{
		NewTestCreateRequest(TestUserAlice, "Paycheck", "salary", "1000.00"),
		NewTestCreateRequest(TestUserAlice, "Coffee", "food", "-4.50"),
	}
}
