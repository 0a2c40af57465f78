package controllers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/evo-edit/evo/internal/api/authenticator"
	"github.com/evo-edit/evo/internal/config"
	"github.com/evo-edit/evo/internal/perrors"
	"github.com/evo-edit/evo/internal/services"
	"github.com/evo-edit/evo/internal/statestore"
	"github.com/evo-edit/evo/pkg/githost"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const stateTTL = 10 * time.Minute

// GitHost is the slice of the upstream client the proxy endpoints use.
type GitHost interface {
	ListRepos(ctx context.Context) ([]githost.Repository, error)
	GetContents(ctx context.Context, owner, repo, path, ref string) (*githost.Contents, error)
	GetFile(ctx context.Context, owner, repo, path, ref string) (*githost.File, error)
	GetTree(ctx context.Context, owner, repo, ref string) (map[string]any, error)
	CommitFile(ctx context.Context, owner, repo, path, content, message, branch string) (map[string]any, error)
}

// GitHostFactory builds a client bound to a stored access token.
type GitHostFactory func(token string) GitHost

func DefaultGitHostFactory(token string) GitHost {
	return githost.NewClient(&githost.ClientOptions{Token: token})
}

// RegisterGitHubOAuthRoutes wires the unauthenticated half of the OAuth flow.
// The states store is optional; when present, each signed state is single-use.
func RegisterGitHubOAuthRoutes(r *router.Router, conf *config.Config, auth *authenticator.Authenticator, states statestore.Store) {
	r.GET("/github/connect", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		redirect := sanitizeRedirect(conf.CLIENT_URL, stringQuery(ctx, "redirect", ""))
		now := time.Now()
		state := authenticator.OAuthState{
			CSRF:      uuid.NewString(),
			Redirect:  redirect,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(stateTTL).Unix(),
		}

		signed, err := auth.GetSignedState(state)
		if err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to sign state", err))
			return
		}

		if states != nil {
			if err := states.Put(stdCtx, state.CSRF, stateTTL); err != nil {
				writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to store state", err))
				return
			}
		}

		ctx.Redirect(auth.AuthCodeURL(signed), fasthttp.StatusFound)
	})

	r.GET("/github/callback", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		encoded := string(ctx.QueryArgs().Peek("state"))
		code := string(ctx.QueryArgs().Peek("code"))
		if encoded == "" || code == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Missing state or code", errors.New("state and code required")))
			return
		}

		state, err := auth.VerifySignedState(encoded)
		if err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid state", err))
			return
		}

		if states != nil {
			ok, err := states.Consume(stdCtx, state.CSRF)
			if err != nil {
				writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to check state", err))
				return
			}
			if !ok {
				writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("State already used", errors.New("replayed state")))
				return
			}
		}

		tok, err := auth.Exchange(stdCtx, code)
		if err != nil {
			writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeUpstreamUnavailable, "Code exchange failed", err))
			return
		}

		// the token rides the fragment so it never reaches the client's server logs
		ctx.Redirect(state.Redirect+"#gh_token="+url.QueryEscape(tok.AccessToken), fasthttp.StatusFound)
	})
}

type LinkRequest struct {
	Token string `json:"token"`
}

type CommitRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Message string `json:"message"`
	Branch  string `json:"branch"`
}

// RegisterGitHubRoutes wires the authenticated repository proxy.
func RegisterGitHubRoutes(r *router.Router, svc *services.Services, hosts GitHostFactory) {
	r.POST("/api/github/link", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		acct := currentAccount(ctx)

		var req LinkRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if req.Token == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Token is required", errors.New("missing token")))
			return
		}

		if err := svc.Account.LinkGitHub(stdCtx, acct.ID, req.Token); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to link account", err))
			return
		}

		writeOK(ctx, map[string]any{"ok": true})
	})

	r.GET("/api/github/repos", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		host, perr := linkedHost(ctx, hosts)
		if perr != nil {
			writeError(ctx, stdCtx, perr)
			return
		}

		repos, err := host.ListRepos(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, upstreamError("Failed to list repositories", err))
			return
		}

		writeOK(ctx, map[string]any{"repos": repos})
	})

	r.GET("/api/github/repos/{owner}/{repo}/contents", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		host, perr := linkedHost(ctx, hosts)
		if perr != nil {
			writeError(ctx, stdCtx, perr)
			return
		}

		owner, repo := repoParams(ctx)
		path := stringQuery(ctx, "path", "")
		ref := stringQuery(ctx, "ref", "")

		contents, err := host.GetContents(stdCtx, owner, repo, path, ref)
		if err != nil {
			writeError(ctx, stdCtx, upstreamError("Failed to fetch contents", err))
			return
		}

		if contents.File != nil {
			writeOK(ctx, contents.File)
			return
		}
		writeOK(ctx, map[string]any{"items": contents.Dir})
	})

	r.GET("/api/github/repos/{owner}/{repo}/tree", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		host, perr := linkedHost(ctx, hosts)
		if perr != nil {
			writeError(ctx, stdCtx, perr)
			return
		}

		owner, repo := repoParams(ctx)
		ref := stringQuery(ctx, "ref", "main")

		tree, err := host.GetTree(stdCtx, owner, repo, ref)
		if err != nil {
			writeError(ctx, stdCtx, upstreamError("Failed to fetch tree", err))
			return
		}

		writeOK(ctx, map[string]any{"tree": tree})
	})

	r.GET("/api/github/repos/{owner}/{repo}/file", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		host, perr := linkedHost(ctx, hosts)
		if perr != nil {
			writeError(ctx, stdCtx, perr)
			return
		}

		owner, repo := repoParams(ctx)
		path, perr := requireStringQuery(ctx, "path")
		if perr != nil {
			writeError(ctx, stdCtx, perr)
			return
		}
		ref := stringQuery(ctx, "ref", "")

		file, err := host.GetFile(stdCtx, owner, repo, path, ref)
		if err != nil {
			writeError(ctx, stdCtx, upstreamError("Failed to fetch file", err))
			return
		}

		writeOK(ctx, file)
	})

	r.POST("/api/github/repos/{owner}/{repo}/commit", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		host, perr := linkedHost(ctx, hosts)
		if perr != nil {
			writeError(ctx, stdCtx, perr)
			return
		}

		owner, repo := repoParams(ctx)

		var req CommitRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if req.Path == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Missing commit path", errors.New("path required")))
			return
		}

		result, err := host.CommitFile(stdCtx, owner, repo, req.Path, req.Content, req.Message, req.Branch)
		if err != nil {
			writeError(ctx, stdCtx, upstreamError("Failed to commit file", err))
			return
		}

		writeOK(ctx, map[string]any{"result": result})
	})
}

// linkedHost hands back a client for the account's stored token, or the
// no_linked_account error when the flow was never completed.
func linkedHost(ctx *fasthttp.RequestCtx, hosts GitHostFactory) (GitHost, error) {
	acct := currentAccount(ctx)
	if acct.GitHubToken == nil || *acct.GitHubToken == "" {
		return nil, perrors.New(perrors.ErrCodeNoLinkedAccount, "No linked GitHub account", errors.New("github token missing"))
	}
	return hosts(*acct.GitHubToken), nil
}

// sanitizeRedirect only honors redirect targets on the client's own origin.
// The callback sends the exchanged access token to this URL in the fragment,
// so a foreign origin here would hand the token to an attacker; anything off
// origin falls back to the client URL.
func sanitizeRedirect(clientURL, redirect string) string {
	if redirect == "" {
		return clientURL
	}

	base, err := url.Parse(clientURL)
	if err != nil {
		return clientURL
	}
	target, err := url.Parse(redirect)
	if err != nil {
		return clientURL
	}

	if target.Scheme != base.Scheme || target.Host != base.Host {
		return clientURL
	}
	return redirect
}

func repoParams(ctx *fasthttp.RequestCtx) (string, string) {
	return pathParam(ctx, "owner"), pathParam(ctx, "repo")
}

func upstreamError(msg string, err error) error {
	var ue *githost.UpstreamError
	if errors.As(err, &ue) && ue.Status == fasthttp.StatusNotFound {
		return perrors.New(perrors.ErrCodeNotFound, msg, err)
	}
	return perrors.New(perrors.ErrCodeUpstreamUnavailable, msg, err)
}
