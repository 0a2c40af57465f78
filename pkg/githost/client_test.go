package githost

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&ClientOptions{
		BaseURL:   srv.URL,
		Token:     "test-token",
		Transport: srv.Client(),
	})
}

func TestListRepos(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/repos", r.URL.Path)
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Evo-App", r.Header.Get("User-Agent"))

		w.Write([]byte(`[
			{"full_name":"alice/editor","name":"editor","description":"an editor","owner":{"login":"alice"}},
			{"full_name":"alice/notes","name":"notes","owner":{"login":"alice"}}
		]`))
	}))

	repos, err := client.ListRepos(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "alice/editor", repos[0].FullName)
	assert.Equal(t, "alice", repos[0].Owner)
	assert.Equal(t, "editor", repos[0].Name)
	assert.Equal(t, "an editor", repos[0].Description)
}

func TestGetContentsDirectorySortsDirsFirst(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"name":"zz.txt","path":"zz.txt","type":"file","size":3,"sha":"s1"},
			{"name":"src","path":"src","type":"dir","sha":"s2"},
			{"name":"aa.txt","path":"aa.txt","type":"file","size":5,"sha":"s3"},
			{"name":"docs","path":"docs","type":"dir","sha":"s4"}
		]`))
	}))

	contents, err := client.GetContents(context.Background(), "alice", "editor", "", "")
	require.NoError(t, err)
	require.Nil(t, contents.File)
	require.Len(t, contents.Dir, 4)

	names := []string{contents.Dir[0].Name, contents.Dir[1].Name, contents.Dir[2].Name, contents.Dir[3].Name}
	assert.Equal(t, []string{"docs", "src", "aa.txt", "zz.txt"}, names)
}

func TestGetContentsFileDecodesBase64(t *testing.T) {
	// GitHub wraps base64 payloads with newlines every 60 chars
	encoded := base64.StdEncoding.EncodeToString([]byte("console.log('hello');"))
	wrapped := encoded[:10] + "\n" + encoded[10:] + "\n"

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/alice/editor/contents/src/app.js", r.URL.Path)

		resp, _ := sonic.Marshal(map[string]any{
			"name":     "app.js",
			"path":     "src/app.js",
			"type":     "file",
			"sha":      "abc123",
			"content":  wrapped,
			"encoding": "base64",
		})
		w.Write(resp)
	}))

	contents, err := client.GetContents(context.Background(), "alice", "editor", "src/app.js", "")
	require.NoError(t, err)
	require.NotNil(t, contents.File)
	assert.Equal(t, "console.log('hello');", contents.File.Content)
	assert.Equal(t, "abc123", contents.File.SHA)
}

func TestContentsPathEscapesSegmentsOnly(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`[]`))
	}))

	_, err := client.GetContents(context.Background(), "alice", "editor", "my docs/notes #1.md", "")
	require.NoError(t, err)

	// the separator survives, the segments are escaped
	assert.Equal(t, "/repos/alice/editor/contents/my%20docs/notes%20%231.md", gotPath)
}

func TestGetContentsSortsNonDirectoriesByName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"name":"vendor","path":"vendor","type":"submodule","sha":"s1"},
			{"name":"b.txt","path":"b.txt","type":"file","sha":"s2"},
			{"name":"link","path":"link","type":"symlink","sha":"s3"},
			{"name":"src","path":"src","type":"dir","sha":"s4"},
			{"name":"a.txt","path":"a.txt","type":"file","sha":"s5"}
		]`))
	}))

	contents, err := client.GetContents(context.Background(), "alice", "editor", "", "")
	require.NoError(t, err)
	require.Len(t, contents.Dir, 5)

	// directories first, then everything else in one name-ordered group
	names := make([]string, 0, 5)
	for _, e := range contents.Dir {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"src", "a.txt", "b.txt", "link", "vendor"}, names)
}

func TestGetFileRejectsDirectory(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"a.txt","path":"src/a.txt","type":"file"}]`))
	}))

	_, err := client.GetFile(context.Background(), "alice", "editor", "src", "")
	assert.Error(t, err)
}

func TestCommitFileCreatesWithoutSHA(t *testing.T) {
	var putBody map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
		case http.MethodPut:
			require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&putBody))
			w.Write([]byte(`{"commit":{"sha":"new"}}`))
		}
	}))

	result, err := client.CommitFile(context.Background(), "alice", "editor", "new.txt", "hi", "", "")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Update from Evo", putBody["message"])
	assert.Equal(t, "main", putBody["branch"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hi")), putBody["content"])
	_, hasSHA := putBody["sha"]
	assert.False(t, hasSHA, "create must not send a sha")
}

func TestCommitFileUpdatesWithSHA(t *testing.T) {
	var putBody map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			resp, _ := sonic.Marshal(map[string]any{
				"name": "old.txt", "path": "old.txt", "type": "file",
				"sha":     "existing-sha",
				"content": base64.StdEncoding.EncodeToString([]byte("old")), "encoding": "base64",
			})
			w.Write(resp)
		case http.MethodPut:
			require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&putBody))
			w.Write([]byte(`{"commit":{"sha":"updated"}}`))
		}
	}))

	_, err := client.CommitFile(context.Background(), "alice", "editor", "old.txt", "new content", "edit", "dev")
	require.NoError(t, err)

	assert.Equal(t, "existing-sha", putBody["sha"])
	assert.Equal(t, "edit", putBody["message"])
	assert.Equal(t, "dev", putBody["branch"])
}

func TestCommitFilePropagatesShaLookupFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))

	_, err := client.CommitFile(context.Background(), "alice", "editor", "f.txt", "x", "", "")
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadGateway, ue.Status)
}

func TestUpstreamErrorCarriesStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	}))

	_, err := client.ListRepos(context.Background())
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Contains(t, ue.Body, "Bad credentials")
}

func TestGetTree(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/alice/editor/git/trees/main", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		w.Write([]byte(`{"sha":"root","tree":[{"path":"a.txt","type":"blob"}],"truncated":false}`))
	}))

	tree, err := client.GetTree(context.Background(), "alice", "editor", "main")
	require.NoError(t, err)
	assert.Equal(t, "root", tree["sha"])
}
