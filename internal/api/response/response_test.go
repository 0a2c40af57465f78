package response

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/evo-edit/evo/internal/perrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func decodeErrorBody(t *testing.T, ctx *fasthttp.RequestCtx) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, sonic.Unmarshal(ctx.Response.Body(), &body))
	return body.Error
}

func TestWriteOK(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	WriteOK(ctx, map[string]any{"ok": true})

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.JSONEq(t, `{"ok":true}`, string(ctx.Response.Body()))
}

func TestWriteErrorUsesErrorStatus(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	err := perrors.New(perrors.ErrCodeNotFound, "Project not found", errors.New("no rows"))

	WriteError(ctx, context.Background(), err)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "no rows", decodeErrorBody(t, ctx))
}

func TestWriteErrorWrapsUnknownErrors(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}

	WriteError(ctx, context.Background(), errors.New("boom"))

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "internal server error", decodeErrorBody(t, ctx))
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	err := perrors.NewErrInternalServerError("Query failed", errors.New(`pq: relation "projects" does not exist`))

	WriteError(ctx, context.Background(), err)

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "internal server error", decodeErrorBody(t, ctx))
	assert.NotContains(t, string(ctx.Response.Body()), "pq:")
}

func TestWriteUnauthenticated(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}

	WriteUnauthenticated(ctx)

	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"unauthenticated"}`, string(ctx.Response.Body()))
}
