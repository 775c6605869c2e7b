package xhttp

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// serveOnce runs handler behind an in-memory listener and performs one
// request against it. Timeout responses are only materialized by the
// server loop, so invoking the handler on a bare RequestCtx is not enough.
func serveOnce(t *testing.T, handler RequestHandler, method, path string) *fasthttp.Response {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() {
		_ = ln.Close()
	})

	c := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetMethod(method)
	req.SetRequestURI("http://test.local" + path)

	resp := &fasthttp.Response{}
	require.NoError(t, c.Do(req, resp))
	return resp
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("timed-out request renders the error envelope", func(t *testing.T) {
		slow := func(ctx *RequestCtx) {
			time.Sleep(200 * time.Millisecond)
			ctx.SetStatusCode(StatusOK)
		}

		resp := serveOnce(t, TimeoutMiddleware(20*time.Millisecond)(slow), fasthttp.MethodGet, "/anything")

		assert.Equal(t, StatusRequestTimeout, resp.StatusCode())

		var body struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(resp.Body(), &body), "body: %s", resp.Body())
		assert.False(t, body.Success)
		assert.Equal(t, StatusText(StatusRequestTimeout), body.Message)
	})

	t.Run("fast request passes through untouched", func(t *testing.T) {
		fast := func(ctx *RequestCtx) {
			ctx.SetStatusCode(StatusOK)
			ctx.SetBodyString("ok")
		}

		resp := serveOnce(t, TimeoutMiddleware(time.Second)(fast), fasthttp.MethodGet, "/anything")

		assert.Equal(t, StatusOK, resp.StatusCode())
		assert.Equal(t, "ok", string(resp.Body()))
	})
}
