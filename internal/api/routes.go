package api

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/evo-edit/evo/internal/api/authenticator"
	"github.com/evo-edit/evo/internal/api/controllers"
	"github.com/evo-edit/evo/internal/api/response"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/propagation"
)

var tracePropagator = propagation.TraceContext{}

func (s *Server) initNewRoutes() fasthttp.RequestHandler {
	r := router.New()

	r.GET("/api/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write([]byte("OK"))
	})

	auth := authenticator.New(s.conf)

	controllers.RegisterAuthRoutes(r, s.services, auth)
	controllers.RegisterProjectRoutes(r, s.services)
	controllers.RegisterGitHubOAuthRoutes(r, s.conf, auth, s.states)
	controllers.RegisterGitHubRoutes(r, s.services, controllers.DefaultGitHostFactory)

	return s.withMiddlewares(r.Handler, auth)
}

func (s *Server) withMiddlewares(next fasthttp.RequestHandler, auth *authenticator.Authenticator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		applyCORS(ctx)
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		start := time.Now()
		uri := ctx.URI()
		requestURI := string(uri.FullURI())
		slog.Info("Started processing", slog.String("method", string(ctx.Method())), slog.String("request_uri", requestURI))

		h := http.Header{}
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			h[string(k)] = []string{string(v)}
		})
		traceCtx := tracePropagator.Extract(ctx, propagation.HeaderCarrier(h))
		ctx.SetUserValue("traceCtx", traceCtx)

		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Panic while handling request", slog.Any("panic", rec), slog.String("request_uri", requestURI))
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			}
		}()

		// Auth check
		if !isPublicRoute(ctx) {
			accessToken := strings.TrimPrefix(string(ctx.Request.Header.Peek("Authorization")), "Bearer ")
			if accessToken == "" {
				response.WriteUnauthenticated(ctx)
				return
			}

			claims, err := auth.VerifyToken(accessToken)
			if err != nil {
				// expired and malformed tokens get the same response; the
				// distinction only matters for the logs
				slog.Info("Rejected session token", slog.Any("reason", err))
				response.WriteUnauthenticated(ctx)
				return
			}

			accountID, err := uuid.Parse(claims.AccountID())
			if err != nil {
				response.WriteUnauthenticated(ctx)
				return
			}

			acct, err := s.services.Account.GetByID(traceCtx, accountID)
			if err != nil {
				response.WriteUnauthenticated(ctx)
				return
			}

			// Store the resolved account for downstream handlers
			ctx.SetUserValue("account", acct)
		}

		next(ctx)

		slog.Info("Finished processing", slog.String("method", string(ctx.Method())), slog.String("request_uri", requestURI), slog.Duration("duration", time.Since(start)))
	}
}

func applyCORS(ctx *fasthttp.RequestCtx) {
	headers := &ctx.Response.Header
	headers.Set("Access-Control-Allow-Origin", string(ctx.Request.Header.Peek("Origin")))
	headers.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS,PATCH")
	headers.Set("Access-Control-Allow-Headers", os.Getenv("ALLOWED_HEADERS"))
	headers.Set("Access-Control-Allow-Credentials", "true")
}

func isPublicRoute(ctx *fasthttp.RequestCtx) bool {
	path := string(ctx.Path())

	publicRoutes := []string{
		"/api/health",
		"/auth/register",
		"/auth/login",
		"/github/connect",
		"/github/callback",
	}

	for _, route := range publicRoutes {
		if path == route {
			return true
		}
	}
	return false
}
