package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

// DefaultBaseURL matches the server's default listen address. Deployments
// point FINTRACK_API_URL at the emulator bridge, a LAN address, or the
// production host.
const DefaultBaseURL = "http://localhost:5001/api"

const EnvBaseURL = "FINTRACK_API_URL"

const defaultRequestTimeout = 10 * time.Second

// BaseURLFromEnv resolves the API base URL for the current environment.
func BaseURLFromEnv() string {
	if v := os.Getenv(EnvBaseURL); v != "" {
		return v
	}
	return DefaultBaseURL
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client is a thin wrapper over the transactions API. It speaks the
// `{success, message, ...}` envelope and hides the 404-on-empty-list
// contract from callers.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: BaseURLFromEnv(),
		http:    &fasthttp.Client{},
		timeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateTransactionInput is the client-side shape of a new transaction.
// The amount keeps the sign convention: positive income, negative expense.
type CreateTransactionInput struct {
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type apiEnvelope struct {
	Success            bool                 `json:"success"`
	Message            string               `json:"message"`
	Transaction        *model.Transaction   `json:"transaction,omitempty"`
	Transactions       []*model.Transaction `json:"transactions,omitempty"`
	DeletedTransaction *model.Transaction   `json:"deletedTransaction,omitempty"`
	Balance            decimal.Decimal      `json:"balance"`
	Income             decimal.Decimal      `json:"income"`
	Expenses           decimal.Decimal      `json:"expenses"`
}

// Transactions lists a user's transactions, newest first. The server's
// 404 for an empty history is translated back into an empty list.
func (c *Client) Transactions(ctx context.Context, userID string) ([]*model.Transaction, error) {
	status, body, err := c.do(ctx, fasthttp.MethodGet, c.baseURL+"/transactions/"+userID, nil)
	if err != nil {
		return nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode transactions response")
	}

	switch {
	case status == fasthttp.StatusOK && env.Success:
		return env.Transactions, nil
	case status == fasthttp.StatusNotFound:
		// no transactions yet, a normal state for new users
		return []*model.Transaction{}, nil
	default:
		return nil, apiError(status, env.Message)
	}
}

// Summary fetches the derived balance aggregates for a user.
func (c *Client) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	status, body, err := c.do(ctx, fasthttp.MethodGet, c.baseURL+"/transactions/summary/"+userID, nil)
	if err != nil {
		return nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode summary response")
	}
	if status != fasthttp.StatusOK || !env.Success {
		return nil, apiError(status, env.Message)
	}

	return &model.Summary{
		Balance:  env.Balance,
		Income:   env.Income,
		Expenses: env.Expenses,
	}, nil
}

// CreateTransaction records a new transaction for the user.
func (c *Client) CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*model.Transaction, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id":  userID,
		"title":    in.Title,
		"category": in.Category,
		"amount":   in.Amount,
	})
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, fasthttp.MethodPost, c.baseURL+"/transactions", payload)
	if err != nil {
		return nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode create response")
	}
	if status != fasthttp.StatusCreated || !env.Success {
		return nil, apiError(status, env.Message)
	}
	return env.Transaction, nil
}

// DeleteTransaction removes a transaction by id and returns the deleted
// row. Non-positive ids are rejected locally; the server would refuse
// them anyway, so the round trip is not worth it.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if id <= 0 {
		return nil, errors.New("transaction id must be a positive integer")
	}

	status, body, err := c.do(ctx, fasthttp.MethodDelete, fmt.Sprintf("%s/transactions/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode delete response")
	}
	if status != fasthttp.StatusOK || !env.Success {
		return nil, apiError(status, env.Message)
	}
	return env.DeletedTransaction, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, errors.Wrap(err, method+" "+url)
	}

	// the response buffer is pooled, copy it out
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return resp.StatusCode(), out, nil
}

func apiError(status int, message string) error {
	if message == "" {
		message = fasthttp.StatusMessage(status)
	}
	return fmt.Errorf("api: %s (status %d)", message, status)
}
