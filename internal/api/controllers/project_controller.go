package controllers

import (
	"errors"

	"github.com/evo-edit/evo/internal/perrors"
	"github.com/evo-edit/evo/internal/services"
	"github.com/evo-edit/evo/internal/services/project"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

func RegisterProjectRoutes(r *router.Router, svc *services.Services) {
	r.GET("/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		acct := currentAccount(ctx)

		projects, err := svc.Project.List(stdCtx, acct.ID)
		if err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to list projects", err))
			return
		}

		writeOK(ctx, map[string]any{"projects": projects})
	})

	r.POST("/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		acct := currentAccount(ctx)

		var req project.CreateProjectRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if req.Name == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Project name is required", errors.New("missing name")))
			return
		}

		proj, err := svc.Project.Create(stdCtx, acct.ID, &req)
		if err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to create project", err))
			return
		}

		writeOK(ctx, map[string]any{"project": proj})
	})

	r.GET("/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		acct := currentAccount(ctx)

		id, err := uuid.Parse(pathParam(ctx, "id"))
		if err != nil {
			// malformed ids look the same as absent ones
			writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeNotFound, "Project not found", err))
			return
		}

		proj, err := svc.Project.GetByID(stdCtx, id, acct.ID)
		if err != nil {
			if errors.Is(err, project.ErrProjectNotFound) {
				writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeNotFound, "Project not found", err))
				return
			}
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to get project", err))
			return
		}

		writeOK(ctx, map[string]any{"project": proj})
	})

	r.PUT("/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		acct := currentAccount(ctx)

		id, err := uuid.Parse(pathParam(ctx, "id"))
		if err != nil {
			writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeNotFound, "Project not found", err))
			return
		}

		var req project.UpdateProjectRequest
		if err := parseBody(ctx, &req); err != nil {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if req.Name != nil && *req.Name == "" {
			writeError(ctx, stdCtx, perrors.NewErrInvalidRequest("Project name cannot be empty", errors.New("empty name")))
			return
		}

		proj, err := svc.Project.Update(stdCtx, id, acct.ID, &req)
		if err != nil {
			if errors.Is(err, project.ErrProjectNotFound) {
				writeError(ctx, stdCtx, perrors.New(perrors.ErrCodeNotFound, "Project not found", err))
				return
			}
			writeError(ctx, stdCtx, perrors.NewErrInternalServerError("Failed to update project", err))
			return
		}

		writeOK(ctx, map[string]any{"project": proj})
	})
}
