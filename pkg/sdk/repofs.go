package sdk

import (
	"context"
	"fmt"

	"github.com/evo-edit/evo/pkg/githost"
)

// RepoFS exposes the backend's repository proxy as directory listings and
// file fetches, the shape the workspace tree browser consumes.
type RepoFS struct {
	c *SDK
}

func NewRepoFS(c *SDK) *RepoFS {
	return &RepoFS{c: c}
}

func (f *RepoFS) ListDir(ctx context.Context, owner, repo, path, ref string) ([]githost.Entry, error) {
	contents, err := f.c.GetContents(ctx, owner, repo, path, ref)
	if err != nil {
		return nil, err
	}
	if contents.File != nil {
		return nil, fmt.Errorf("%s is a file, not a directory", path)
	}

	return contents.Dir, nil
}

func (f *RepoFS) FetchFile(ctx context.Context, owner, repo, path, ref string) (*githost.File, error) {
	return f.c.GetFile(ctx, owner, repo, path, ref)
}
