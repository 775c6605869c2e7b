// Seeds a demo account through the public API. Useful for local
// development and for smoke-testing a fresh deployment end to end:
//
//	go run ./cmd/seed --user=demo-user
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/fintrackhq/fintrack/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type seedRow struct {
	title    string
	category string
	amount   string
}

var seedRows = []seedRow{
	{"Monthly salary", "salary", "4200.00"},
	{"Freelance invoice", "salary", "650.00"},
	{"Rent", "housing", "-1450.00"},
	{"Groceries", "food", "-112.38"},
	{"Coffee", "food", "-4.50"},
	{"Gym membership", "health", "-29.99"},
	{"Electricity bill", "utilities", "-86.20"},
	{"Concert tickets", "entertainment", "-75.00"},
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	userID := flag.String("user", "demo-user", "user id to seed")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New()
	hook := client.NewHook(c, *userID)

	for _, row := range seedRows {
		amount, err := decimal.NewFromString(row.amount)
		if err != nil {
			log.Fatal().Err(err).Str("title", row.title).Msg("bad seed amount")
		}
		err = hook.AddTransaction(ctx, client.CreateTransactionInput{
			Title:    row.title,
			Category: row.category,
			Amount:   amount,
		})
		if err != nil {
			log.Fatal().Err(err).Str("title", row.title).Msg("failed to seed transaction")
		}
		log.Info().Str("title", row.title).Str("amount", row.amount).Msg("seeded")
	}

	summary := hook.Summary()
	log.Info().
		Str("user", *userID).
		Int("transactions", len(hook.Transactions())).
		Str("balance", summary.Balance.String()).
		Str("income", summary.Income.String()).
		Str("expenses", summary.Expenses.String()).
		Msg("seed complete")
}
