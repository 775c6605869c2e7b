package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/services"
	xhttp "github.com/fintrackhq/fintrack/pkg/http"
	"github.com/fintrackhq/fintrack/pkg/logger"
	"github.com/fintrackhq/fintrack/pkg/prom"
	"github.com/shopspring/decimal"
)

type TransactionService interface {
	Create(ctx context.Context, p model.TransactionCreateRequest) (*model.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error)
	DeleteByID(ctx context.Context, id int64) (*model.Transaction, error)
	Summary(ctx context.Context, userID string) (*model.Summary, error)
}

type TransactionHandler struct {
	svc TransactionService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/transactions", h.CreateTransaction)
	e.GET("/transactions/{userId}", h.ListTransactions)
	e.DELETE("/transactions/{transactionId}", h.DeleteTransaction)
	e.GET("/transactions/summary/{userId}", h.GetSummary)
}

func NewTransactionHandler(transactionService TransactionService) *TransactionHandler {
	return &TransactionHandler{
		svc: transactionService,
	}
}

type createTransactionRequest struct {
	UserID   string           `json:"user_id"`
	Title    string           `json:"title"`
	Category string           `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TransactionHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	var req createTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "All fields required")
		return
	}

	p := model.TransactionCreateRequest{
		UserID:   req.UserID,
		Title:    req.Title,
		Category: req.Category,
		Amount:   req.Amount,
	}

	txn, err := h.svc.Create(ctx, p)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(ctx, xhttp.StatusBadRequest, "All fields required")
			return
		}
		logger.Error("create transaction failed", "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "Internal server error")
		return
	}

	prom.IncCounter(prom.SystemTransactions, prom.MetricTransactionCreateTotal)
	writeJSON(ctx, xhttp.StatusCreated, envelope{
		"success":     true,
		"message":     "Successfully created transaction in table",
		"transaction": txn,
	})
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	userID := param(ctx, "userId")

	txns, err := h.svc.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("list transactions failed", "error", err, "user_id", userID)
		writeError(ctx, xhttp.StatusInternalServerError, "Internal server error")
		return
	}

	// An empty list renders as 404 on the wire. The service reports it as
	// a valid result; this mapping is the documented contract clients
	// already special-case.
	if len(txns) == 0 {
		writeError(ctx, xhttp.StatusNotFound, "No transactions found for user")
		return
	}

	writeJSON(ctx, xhttp.StatusOK, envelope{
		"success":      true,
		"message":      "User transactions found!",
		"transactions": txns,
	})
}

func (h *TransactionHandler) DeleteTransaction(ctx *xhttp.RequestCtx) {
	id, err := strconv.ParseInt(param(ctx, "transactionId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, xhttp.StatusBadRequest, "Invalid transaction ID format. Must be a positive number")
		return
	}

	deleted, err := h.svc.DeleteByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(ctx, xhttp.StatusBadRequest, "Invalid transaction ID format. Must be a positive number")
		case errors.Is(err, services.ErrNotFound):
			writeError(ctx, xhttp.StatusNotFound, "Transaction not found")
		default:
			logger.Error("delete transaction failed", "error", err, "transaction_id", id)
			writeError(ctx, xhttp.StatusInternalServerError, "Internal server error")
		}
		return
	}

	prom.IncCounter(prom.SystemTransactions, prom.MetricTransactionDeleteTotal)
	writeJSON(ctx, xhttp.StatusOK, envelope{
		"success":            true,
		"message":            "Transaction deleted successfully",
		"deletedTransaction": deleted,
	})
}

func (h *TransactionHandler) GetSummary(ctx *xhttp.RequestCtx) {
	userID := param(ctx, "userId")

	summary, err := h.svc.Summary(ctx, userID)
	if err != nil {
		logger.Error("summary failed", "error", err, "user_id", userID)
		writeError(ctx, xhttp.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(ctx, xhttp.StatusOK, envelope{
		"success":  true,
		"message":  "Got user balance successfully",
		"balance":  summary.Balance,
		"income":   summary.Income,
		"expenses": summary.Expenses,
	})
}

/* -------------------------------- Helpers ----------------------------------- */

type envelope map[string]interface{}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, envelope{"success": false, "message": msg})
}

func param(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}
