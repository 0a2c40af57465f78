// Package githost is a client for the GitHub contents API: repo listing,
// lazy directory listing, file fetch and create-or-update commits.
package githost

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// UpstreamError is any non-success response from the code host. It keeps the
// status and body for logging; callers surface it as a 502.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

type ClientOptions struct {
	// https://api.github.com
	BaseURL string
	Token   string

	Transport *http.Client
}

type Client struct {
	opts *ClientOptions
}

func NewClient(opts *ClientOptions) *Client {
	if opts.Transport == nil {
		// upstream calls are bounded; a hung host must not hang the handler
		opts.Transport = &http.Client{Timeout: 30 * time.Second}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.github.com"
	}

	return &Client{
		opts: opts,
	}
}

// ListRepos returns the repositories visible to the token's user.
func (c *Client) ListRepos(ctx context.Context) ([]Repository, error) {
	body, err := c.get(ctx, c.opts.BaseURL+"/user/repos")
	if err != nil {
		return nil, err
	}

	var raw []ghRepo
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unable to decode repo list: %w", err)
	}

	repos := make([]Repository, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, Repository{
			FullName:    r.FullName,
			Owner:       r.Owner.Login,
			Name:        r.Name,
			Description: r.Description,
		})
	}

	return repos, nil
}

// GetContents fetches path@ref. A directory upstream answers with a JSON
// array and yields a sorted listing; a file answers with a single object and
// yields the decoded file. The transport-encoded form never leaves here.
func (c *Client) GetContents(ctx context.Context, owner, repo, path, ref string) (*Contents, error) {
	body, err := c.get(ctx, c.contentsURL(owner, repo, path, ref))
	if err != nil {
		return nil, err
	}

	if isJSONArray(body) {
		var raw []ghContent
		if err := sonic.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("unable to decode directory listing: %w", err)
		}

		entries := make([]Entry, 0, len(raw))
		for _, it := range raw {
			entries = append(entries, Entry{
				Name:        it.Name,
				Path:        it.Path,
				Type:        it.Type,
				Size:        it.Size,
				SHA:         it.SHA,
				DownloadURL: it.DownloadURL,
			})
		}
		sortEntries(entries)

		return &Contents{Dir: entries}, nil
	}

	var raw ghContent
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unable to decode file: %w", err)
	}

	file, err := decodeFile(&raw)
	if err != nil {
		return nil, err
	}

	return &Contents{File: file}, nil
}

// GetFile fetches a single file; a directory path is an error.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (*File, error) {
	contents, err := c.GetContents(ctx, owner, repo, path, ref)
	if err != nil {
		return nil, err
	}

	if contents.File == nil {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return contents.File, nil
}

// GetTree returns the recursive git tree for ref, as the upstream sends it.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string) (map[string]any, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.opts.BaseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref))

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var tree map[string]any
	if err := sonic.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("unable to decode tree: %w", err)
	}

	return tree, nil
}

// CommitFile performs a create-or-update of path@branch. An existing file is
// looked up first; its sha goes into the write so the host can reject stale
// overwrites. A missing file commits without a sha.
func (c *Client) CommitFile(ctx context.Context, owner, repo, path, content, message, branch string) (map[string]any, error) {
	if message == "" {
		message = "Update from Evo"
	}
	if branch == "" {
		branch = "main"
	}

	sha := ""
	existing, err := c.GetContents(ctx, owner, repo, path, branch)
	switch {
	case err == nil:
		if existing.File == nil {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		sha = existing.File.SHA
	case isNotFound(err):
		// create path, no sha
	default:
		return nil, err
	}

	payload, err := sonic.Marshal(struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha,omitempty"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  branch,
		SHA:     sha,
	})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.opts.BaseURL, url.PathEscape(owner), url.PathEscape(repo), escapePath(path))

	body, err := c.do(ctx, http.MethodPut, u, payload)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unable to decode commit result: %w", err)
	}

	return result, nil
}

func (c *Client) contentsURL(owner, repo, path, ref string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents",
		c.opts.BaseURL, url.PathEscape(owner), url.PathEscape(repo))
	if path != "" {
		u += "/" + escapePath(path)
	}
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Evo-App")
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+c.opts.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.opts.Transport.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read upstream response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &UpstreamError{Status: res.StatusCode, Body: string(body)}
	}

	return body, nil
}

func decodeFile(raw *ghContent) (*File, error) {
	content := raw.Content
	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("unable to decode file content: %w", err)
		}
		content = string(decoded)
	}

	return &File{
		Path:     raw.Path,
		Content:  content,
		SHA:      raw.SHA,
		Encoding: raw.Encoding,
	}, nil
}

// escapePath escapes each path segment, keeping the / separators intact.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// sortEntries orders directories before everything else (files, symlinks,
// submodules), ties broken by name.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		iDir := entries[i].Type == "dir"
		jDir := entries[j].Type == "dir"
		if iDir != jDir {
			return iDir
		}
		return entries[i].Name < entries[j].Name
	})
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}
