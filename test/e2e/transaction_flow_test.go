package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fintrackhq/fintrack/internal/handlers"
	"github.com/fintrackhq/fintrack/internal/repository"
	"github.com/fintrackhq/fintrack/internal/services"
	xhttp "github.com/fintrackhq/fintrack/pkg/http"
	"github.com/fintrackhq/fintrack/pkg/pg"
	"github.com/fintrackhq/fintrack/pkg/ratelimit"
	"github.com/fintrackhq/fintrack/pkg/redis"
	"github.com/fintrackhq/fintrack/test/fixtures"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB = pg.DB

type TestEnvironment struct {
	DB                 *pg.DB
	Redis              *miniredis.Miniredis
	RedisAdapter       redis.RedisAdapter
	Limiter            *ratelimit.SlidingWindow
	TransactionRepo    *repository.TransactionRepository
	TransactionService *services.TransactionService

	// Handler is the full request chain: rate-limit gate in front of the
	// router, exactly as the api binary wires it.
	Handler fasthttp.RequestHandler
}

func setupE2EEnvironment(t *testing.T, rateLimit int) *TestEnvironment {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&repository.TransactionEntity{})
	require.NoError(t, err)

	pgDB := &testDB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	limiter := ratelimit.NewSlidingWindow(redisAdapter, rateLimit, time.Minute)

	transactionRepo := repository.NewTransactionRepository(pgDB)
	transactionService := services.NewTransactionService(transactionRepo)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	healthHandler := handlers.NewHealthHandler(services.NewHealthService())

	r := xhttp.CreateDefaultRouter()
	g := r.Group("/api")
	handlers.RegisterTransactionRoutes(g, transactionHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// every request shares one key so the quota is deterministic in tests
	keyFn := func(ctx *xhttp.RequestCtx) string { return "e2e-client" }
	chain := xhttp.RateLimitMiddleware(limiter, keyFn, nil)(r.Handler)

	return &TestEnvironment{
		DB:                 pgDB,
		Redis:              mr,
		RedisAdapter:       redisAdapter,
		Limiter:            limiter,
		TransactionRepo:    transactionRepo,
		TransactionService: transactionService,
		Handler:            chain,
	}
}

func (env *TestEnvironment) do(method, path string, body []byte) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&fasthttp.Request{}, nil, nil)
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBody(body)
	}
	env.Handler(ctx)
	return ctx
}

type apiResponse struct {
	Success            bool              `json:"success"`
	Message            string            `json:"message"`
	Transaction        *json.RawMessage  `json:"transaction"`
	Transactions       []json.RawMessage `json:"transactions"`
	DeletedTransaction *struct {
		ID     int64           `json:"id"`
		Title  string          `json:"title"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"deletedTransaction"`
	Balance  decimal.Decimal `json:"balance"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp), "body: %s", ctx.Response.Body())
	return resp
}

func TestE2E_TransactionLifecycle(t *testing.T) {
	env := setupE2EEnvironment(t, 100)
	ctx := context.Background()

	// record Alice's history through the HTTP surface
	for _, req := range fixtures.AliceHistory() {
		body, err := json.Marshal(map[string]interface{}{
			"user_id":  req.UserID,
			"title":    req.Title,
			"category": req.Category,
			"amount":   req.Amount,
		})
		require.NoError(t, err)

		rctx := env.do(fasthttp.MethodPost, "/api/transactions", body)
		require.Equal(t, fasthttp.StatusCreated, rctx.Response.StatusCode(), "body: %s", rctx.Response.Body())

		resp := decode(t, rctx)
		assert.True(t, resp.Success)
		assert.Equal(t, "Successfully created transaction in table", resp.Message)
		require.NotNil(t, resp.Transaction)
	}

	// list is newest first and scoped to the user
	rctx := env.do(fasthttp.MethodGet, "/api/transactions/"+fixtures.TestUserAlice, nil)
	require.Equal(t, fasthttp.StatusOK, rctx.Response.StatusCode())
	resp := decode(t, rctx)
	assert.Equal(t, "User transactions found!", resp.Message)
	require.Len(t, resp.Transactions, 2)

	// the summary is derived from the signed amounts
	rctx = env.do(fasthttp.MethodGet, "/api/transactions/summary/"+fixtures.TestUserAlice, nil)
	require.Equal(t, fasthttp.StatusOK, rctx.Response.StatusCode())
	resp = decode(t, rctx)
	assert.True(t, resp.Balance.Equal(fixtures.Amount("995.50")), "balance %s", resp.Balance)
	assert.True(t, resp.Income.Equal(fixtures.Amount("1000.00")))
	assert.True(t, resp.Expenses.Equal(fixtures.Amount("-4.50")))
	assert.True(t, resp.Balance.Equal(resp.Income.Add(resp.Expenses)))

	// deleting returns the removed row
	txns, err := env.TransactionRepo.ListByUser(ctx, fixtures.TestUserAlice)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	rctx = env.do(fasthttp.MethodDelete, fmt.Sprintf("/api/transactions/%d", txns[0].ID), nil)
	require.Equal(t, fasthttp.StatusOK, rctx.Response.StatusCode())
	resp = decode(t, rctx)
	assert.Equal(t, "Transaction deleted successfully", resp.Message)
	require.NotNil(t, resp.DeletedTransaction)
	assert.Equal(t, txns[0].ID, resp.DeletedTransaction.ID)

	// a second delete of the same id is a 404
	rctx = env.do(fasthttp.MethodDelete, fmt.Sprintf("/api/transactions/%d", txns[0].ID), nil)
	assert.Equal(t, fasthttp.StatusNotFound, rctx.Response.StatusCode())
	assert.Equal(t, "Transaction not found", decode(t, rctx).Message)
}

func TestE2E_EmptyHistoryRenders404(t *testing.T) {
	env := setupE2EEnvironment(t, 100)

	rctx := env.do(fasthttp.MethodGet, "/api/transactions/"+fixtures.TestUserEmpty, nil)
	assert.Equal(t, fasthttp.StatusNotFound, rctx.Response.StatusCode())
	assert.Equal(t, "No transactions found for user", decode(t, rctx).Message)

	// the summary endpoint has no such quirk: zero aggregates, 200
	rctx = env.do(fasthttp.MethodGet, "/api/transactions/summary/"+fixtures.TestUserEmpty, nil)
	assert.Equal(t, fasthttp.StatusOK, rctx.Response.StatusCode())
	resp := decode(t, rctx)
	assert.True(t, resp.Balance.IsZero())
	assert.True(t, resp.Income.IsZero())
	assert.True(t, resp.Expenses.IsZero())
}

func TestE2E_ValidationErrors(t *testing.T) {
	env := setupE2EEnvironment(t, 100)

	rctx := env.do(fasthttp.MethodPost, "/api/transactions", []byte(`{"title":"only a title"}`))
	assert.Equal(t, fasthttp.StatusBadRequest, rctx.Response.StatusCode())
	assert.Equal(t, "All fields required", decode(t, rctx).Message)

	rctx = env.do(fasthttp.MethodDelete, "/api/transactions/abc", nil)
	assert.Equal(t, fasthttp.StatusBadRequest, rctx.Response.StatusCode())
	assert.Equal(t, "Invalid transaction ID format. Must be a positive number", decode(t, rctx).Message)
}

func TestE2E_RateLimitGate(t *testing.T) {
	env := setupE2EEnvironment(t, 2)
	ctx := context.Background()

	body, err := json.Marshal(map[string]interface{}{
		"user_id":  fixtures.TestUserBob,
		"title":    "Paycheck",
		"category": "salary",
		"amount":   "100.00",
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rctx := env.do(fasthttp.MethodPost, "/api/transactions", body)
		require.Equal(t, fasthttp.StatusCreated, rctx.Response.StatusCode())
	}

	// the third request is denied before it reaches any handler
	rctx := env.do(fasthttp.MethodPost, "/api/transactions", body)
	assert.Equal(t, fasthttp.StatusTooManyRequests, rctx.Response.StatusCode())
	resp := decode(t, rctx)
	assert.False(t, resp.Success)
	assert.Equal(t, "Too many requests, please try again later", resp.Message)

	// nothing was written for the denied request
	txns, err := env.TransactionRepo.ListByUser(ctx, fixtures.TestUserBob)
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	// the gate is endpoint-agnostic: reads are rejected too
	rctx = env.do(fasthttp.MethodGet, "/api/transactions/"+fixtures.TestUserBob, nil)
	assert.Equal(t, fasthttp.StatusTooManyRequests, rctx.Response.StatusCode())
}

func TestE2E_RateLimiterBackendFailure(t *testing.T) {
	env := setupE2EEnvironment(t, 100)

	// a broken limiter backend fails closed with a 500
	env.Redis.Close()

	rctx := env.do(fasthttp.MethodGet, "/api/transactions/"+fixtures.TestUserAlice, nil)
	assert.Equal(t, fasthttp.StatusInternalServerError, rctx.Response.StatusCode())
	assert.Equal(t, "Internal server error", decode(t, rctx).Message)
}
