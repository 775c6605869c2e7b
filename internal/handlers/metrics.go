package handlers

import (
	"strconv"

	"github.com/fasthttp/router"
	xhttp "github.com/fintrackhq/fintrack/pkg/http"
	"github.com/fintrackhq/fintrack/pkg/prom"
)

// MetricsMiddleware counts every request by method, matched route and
// status. The matched route template keeps label cardinality bounded; raw
// paths would explode on user ids.
func MetricsMiddleware(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		next(ctx)

		route := "unmatched"
		if v, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok {
			route = v
		}
		prom.IncCounterVec(prom.SystemHTTP, prom.MetricHTTPRequestsTotal,
			string(ctx.Method()), route, strconv.Itoa(ctx.Response.StatusCode()))
	}
}
