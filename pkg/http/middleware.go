package xhttp

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/fintrackhq/fintrack/pkg/logger"
	"github.com/fintrackhq/fintrack/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const slowThreshold = 500 * time.Millisecond

var skipPaths = []string{"/health", "/metrics"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	// a timed-out request renders the same envelope as every other error
	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"message": StatusText(StatusRequestTimeout),
	})
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, string(body), StatusRequestTimeout)
	}
}

func CompressMiddleware(level int) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.CompressHandlerBrotliLevel(next, level, level)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				writeEnvelopeError(ctx, StatusInternalServerError, "Internal server error")
				logger.Error("[xhttp] panic recovered", "error", err)
			}
		}()
		next(ctx)
	}
}

// KeyFunc derives the rate-limit key from the request. Injecting it keeps
// the quota per client instead of one shared bucket for everyone.
type KeyFunc func(ctx *RequestCtx) string

// ClientIPKey buckets requests by remote address.
func ClientIPKey(ctx *RequestCtx) string {
	return ctx.RemoteIP().String()
}

// RateLimitMiddleware is the admission gate: it consults the limiter
// before the router ever sees the request. Denials render 429 and the
// request never reaches a handler; a limiter backend failure renders 500.
func RateLimitMiddleware(limiter ratelimit.Limiter, keyFn KeyFunc, onDenied func()) MiddlewareFunc {
	if keyFn == nil {
		keyFn = ClientIPKey
	}
	return func(next RequestHandler) RequestHandler {
		return func(ctx *RequestCtx) {
			allowed, err := limiter.Allow(ctx, keyFn(ctx))
			if err != nil {
				logger.Error("[xhttp] rate limiter check failed", "error", err)
				writeEnvelopeError(ctx, StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				if onDenied != nil {
					onDenied()
				}
				writeEnvelopeError(ctx, StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next(ctx)
		}
	}
}

func RequestLoggerMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		if shouldSkip(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		latency := time.Since(start)
		status := ctx.Response.StatusCode()
		method := string(ctx.Method())
		ip := ctx.RemoteIP().String()
		ua := string(ctx.Request.Header.UserAgent())
		rid := requestID(ctx)

		lg := logger.GetLogger()

		// choose level
		switch {
		case status >= 500:
			lg.Error("http_request",
				"status", status,
				"method", method,
				"path", path,
				"latency", latency.String(),
				"bytes_in", len(ctx.PostBody()),
				"bytes_out", len(ctx.Response.Body()),
				"ip", ip,
				"ua", ua,
				"request_id", rid,
			)
		case status >= 400 || latency > slowThreshold:
			lg.Warn("http_request",
				"status", status,
				"method", method,
				"path", path,
				"latency", latency.String(),
				"bytes_in", len(ctx.PostBody()),
				"bytes_out", len(ctx.Response.Body()),
				"ip", ip,
				"ua", ua,
				"request_id", rid,
			)
		default:
			lg.Info("http_request",
				"status", status,
				"method", method,
				"path", path,
				"latency", latency.String(),
				"bytes_in", len(ctx.PostBody()),
				"bytes_out", len(ctx.Response.Body()),
				"ip", ip,
				"ua", ua,
				"request_id", rid,
			)
		}
	}
}

func shouldSkip(p string) bool {
	for _, sp := range skipPaths {
		if strings.HasPrefix(p, sp) {
			return true
		}
	}
	return false
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if v := ctx.Request.Header.Peek("X-Request-Id"); len(v) > 0 {
		return string(v)
	}
	if v := ctx.Request.Header.Peek("X-Request-ID"); len(v) > 0 { // common variant
		return string(v)
	}
	// assign one so the response is still traceable in the logs
	rid := uuid.NewString()
	ctx.Response.Header.Set("X-Request-Id", rid)
	return rid
}

func writeEnvelopeError(ctx *RequestCtx, status int, msg string) {
	b, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"message": msg,
	})
	ctx.Response.Reset()
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}
