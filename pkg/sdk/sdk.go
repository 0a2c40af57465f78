package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/evo-edit/evo/internal/services/project"
	"github.com/evo-edit/evo/pkg/githost"
)

// SDK is a client for the editor backend. Auth endpoints store the session
// token on the client, so subsequent calls are authenticated automatically.
type SDK struct {
	endpoint string
	token    string
	http     *http.Client
}

type ClientOptions struct {
	// Endpoint of the editor backend, e.g. http://localhost:8080.
	Endpoint string

	// Token is an existing session token. Optional; Register and Login
	// set it on success.
	Token string

	HTTPClient *http.Client
}

func New(opts *ClientOptions) *SDK {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &SDK{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		http:     httpClient,
	}
}

// SetToken replaces the session token used for authenticated calls.
func (c *SDK) SetToken(token string) {
	c.token = token
}

// Token returns the current session token.
func (c *SDK) Token() string {
	return c.token
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Register creates an account and stores the returned session token.
func (c *SDK) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}

	c.token = res.Token
	return &res, nil
}

// Login authenticates and stores the returned session token.
func (c *SDK) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}

	c.token = res.Token
	return &res, nil
}

// Me returns the account behind the current session token.
func (c *SDK) Me(ctx context.Context) (*User, error) {
	var res struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &res); err != nil {
		return nil, err
	}

	return &res.User, nil
}

// ListProjects returns the account's projects, most recently updated first.
func (c *SDK) ListProjects(ctx context.Context) ([]*project.Summary, error) {
	var res struct {
		Projects []*project.Summary `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &res); err != nil {
		return nil, err
	}

	return res.Projects, nil
}

func (c *SDK) CreateProject(ctx context.Context, req *project.CreateProjectRequest) (*project.Project, error) {
	var res struct {
		Project *project.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodPost, "/projects", nil, req, &res); err != nil {
		return nil, err
	}

	return res.Project, nil
}

func (c *SDK) GetProject(ctx context.Context, id string) (*project.Project, error) {
	var res struct {
		Project *project.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, nil, &res); err != nil {
		return nil, err
	}

	return res.Project, nil
}

func (c *SDK) UpdateProject(ctx context.Context, id string, req *project.UpdateProjectRequest) (*project.Project, error) {
	var res struct {
		Project *project.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), nil, req, &res); err != nil {
		return nil, err
	}

	return res.Project, nil
}

// ConnectURL is the browser entry point for linking a GitHub account. The
// flow ends with a redirect back to the given URL carrying the access token
// in the fragment.
func (c *SDK) ConnectURL(redirect string) string {
	if redirect == "" {
		return c.endpoint + "/github/connect"
	}
	return c.endpoint + "/github/connect?redirect=" + url.QueryEscape(redirect)
}

// LinkGitHub stores a GitHub access token on the account.
func (c *SDK) LinkGitHub(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/github/link", nil, map[string]string{"token": token}, nil)
}

// ListRepos lists the repositories visible to the linked GitHub account.
func (c *SDK) ListRepos(ctx context.Context) ([]githost.Repository, error) {
	var res struct {
		Repos []githost.Repository `json:"repos"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/github/repos", nil, nil, &res); err != nil {
		return nil, err
	}

	return res.Repos, nil
}

// GetContents fetches a path in the repository. Directories come back as
// sorted entries, files as decoded content.
func (c *SDK) GetContents(ctx context.Context, owner, repo, path, ref string) (*githost.Contents, error) {
	q := url.Values{}
	if path != "" {
		q.Set("path", path)
	}
	if ref != "" {
		q.Set("ref", ref)
	}

	raw, err := c.doRaw(ctx, http.MethodGet, repoPath(owner, repo, "contents"), q, nil)
	if err != nil {
		return nil, err
	}

	// a directory response wraps its entries; a file response is flat
	var dir struct {
		Items *[]githost.Entry `json:"items"`
	}
	if err := sonic.Unmarshal(raw, &dir); err == nil && dir.Items != nil {
		return &githost.Contents{Dir: *dir.Items}, nil
	}

	var file githost.File
	if err := sonic.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	return &githost.Contents{File: &file}, nil
}

func (c *SDK) GetFile(ctx context.Context, owner, repo, path, ref string) (*githost.File, error) {
	q := url.Values{}
	q.Set("path", path)
	if ref != "" {
		q.Set("ref", ref)
	}

	var file githost.File
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "file"), q, nil, &file); err != nil {
		return nil, err
	}

	return &file, nil
}

func (c *SDK) GetTree(ctx context.Context, owner, repo, ref string) (map[string]any, error) {
	q := url.Values{}
	if ref != "" {
		q.Set("ref", ref)
	}

	var res struct {
		Tree map[string]any `json:"tree"`
	}
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "tree"), q, nil, &res); err != nil {
		return nil, err
	}

	return res.Tree, nil
}

type CommitRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Message string `json:"message,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// CommitFile creates or updates a single file through the backend.
func (c *SDK) CommitFile(ctx context.Context, owner, repo string, req *CommitRequest) (map[string]any, error) {
	var res struct {
		Result map[string]any `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, repoPath(owner, repo, "commit"), nil, req, &res); err != nil {
		return nil, err
	}

	return res.Result, nil
}

func repoPath(owner, repo, op string) string {
	return "/api/github/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/" + op
}

func (c *SDK) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	raw, err := c.doRaw(ctx, method, path, query, payload)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	return sonic.Unmarshal(raw, out)
}

func (c *SDK) doRaw(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := sonic.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = sonic.Unmarshal(raw, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = string(raw)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	return raw, nil
}
