package controllers

import (
	"context"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/evo-edit/evo/internal/api/response"
	"github.com/evo-edit/evo/internal/perrors"
	"github.com/evo-edit/evo/internal/services/account"
	"github.com/valyala/fasthttp"
)

// requestContext returns a baseline context for handlers. fasthttp does not
// provide a standard context; the middleware stashes the extracted trace
// context under "traceCtx".
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if tc, ok := ctx.UserValue("traceCtx").(context.Context); ok {
		return tc
	}
	return context.Background()
}

// currentAccount returns the account resolved by the auth gate. Handlers on
// protected routes can rely on it being present.
func currentAccount(ctx *fasthttp.RequestCtx) *account.Account {
	acct, _ := ctx.UserValue("account").(*account.Account)
	return acct
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	response.WriteError(ctx, stdCtx, err)
}

func writeOK(ctx *fasthttp.RequestCtx, payload any) {
	response.WriteOK(ctx, payload)
}

// pathParam returns a route parameter; the router only invokes the handler
// when the segment is present.
func pathParam(ctx *fasthttp.RequestCtx, key string) string {
	val, _ := ctx.UserValue(key).(string)
	return val
}

func requireStringQuery(ctx *fasthttp.RequestCtx, key string) (string, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return "", perrors.NewErrInvalidRequest(key+" parameter is required", fmt.Errorf("missing %s", key))
	}

	return string(raw), nil
}

func stringQuery(ctx *fasthttp.RequestCtx, key, fallback string) string {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return fallback
	}

	return string(raw)
}
