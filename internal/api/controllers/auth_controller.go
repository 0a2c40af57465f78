package controllers

import (
	"errors"

	"github.com/evo-edit/evo/internal/api/authenticator"
	"github.com/evo-edit/evo/internal/perrors"
	"github.com/evo-edit/evo/internal/services"
	"github.com/evo-edit/evo/internal/services/account"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	r.POST("/auth/register", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req CredentialsRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if req.Email == "" || req.Password == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Missing credentials", errors.New("email and password required")))
			return
		}

		acct, err := svc.Account.Register(stdCtx, req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, account.ErrDuplicateEmail):
				writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeDuplicateEmail, "Registration failed", err))
			default:
				writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to register", err))
			}
			return
		}

		token, err := auth.IssueToken(acct.ID.String(), acct.Email)
		if err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, AuthResponse{
			User:  UserResponse{ID: acct.ID.String(), Email: acct.Email},
			Token: token,
		})
	})

	r.POST("/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var req CredentialsRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if req.Email == "" || req.Password == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Missing credentials", errors.New("email and password required")))
			return
		}

		acct, err := svc.Account.Authenticate(stdCtx, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, account.ErrInvalidCredentials) {
				// wrong password and unknown email are deliberately the same failure
				writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeInvalidCredentials, "Login failed", err))
				return
			}
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to authenticate", err))
			return
		}

		token, err := auth.IssueToken(acct.ID.String(), acct.Email)
		if err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, AuthResponse{
			User:  UserResponse{ID: acct.ID.String(), Email: acct.Email},
			Token: token,
		})
	})

	r.GET("/auth/me", func(ctx *fasthttp.RequestCtx) {
		acct := currentAccount(ctx)

		writeOK(ctx, map[string]any{
			"user": UserResponse{ID: acct.ID.String(), Email: acct.Email},
		})
	})
}
