package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/evo-edit/evo/internal/perrors"
)

// WriteJSON marshals payload and writes it with the given status code.
func WriteJSON(ctx *fasthttp.RequestCtx, status int, payload any) {
	ctx.Response.Header.Set("content-type", "application/json")
	ctx.SetStatusCode(status)

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Unable to json encode response", slog.Any("error", err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.SetBody(body)
}

// WriteOK writes payload with a 200 status.
func WriteOK(ctx *fasthttp.RequestCtx, payload any) {
	WriteJSON(ctx, http.StatusOK, payload)
}

// WriteError converts err into a `{"error": "..."}` body. perrors values carry
// their own status; anything else degrades to a generic 500.
func WriteError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	var perr perrors.Err
	if !errors.As(err, &perr) {
		perr = perrors.NewErrInternalServerError("Unexpected error", err).(perrors.Err)
	}

	perr.Print(stdCtx)

	message := perr.Error()
	if perr.Code == perrors.ErrCodeInternalServerError {
		// the wrapped cause (driver errors and the like) stays in the logs
		message = "internal server error"
	}

	WriteJSON(ctx, perr.HttpStatus(), map[string]string{"error": message})
}

// WriteUnauthenticated writes the uniform 401 body. Every auth failure,
// whatever its cause, looks the same to the caller.
func WriteUnauthenticated(ctx *fasthttp.RequestCtx) {
	WriteJSON(ctx, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
}
