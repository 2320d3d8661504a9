package bitbucket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/provider"
	"github.com/crag-dev/crag/internal/vcs"
)

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider("test-token", srv.URL)
	require.NoError(t, err)
	return p.(*Provider), srv.URL
}

func TestNewProviderRequiresToken(t *testing.T) {
	_, err := NewProvider("", "")
	assert.Error(t, err)
}

func TestFetchPR(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/team/repo/pullrequests/7", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          7,
			"title":       "Add login",
			"description": "implements login",
			"state":       "OPEN",
			"author":      map[string]any{"display_name": "Dev"},
			"source": map[string]any{
				"branch": map[string]any{"name": "feature/login"},
				"commit": map[string]any{"hash": "abc123"},
			},
			"destination": map[string]any{"branch": map[string]any{"name": "main"}},
		})
	}))

	pr, err := p.FetchPR("team/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pr.Number)
	assert.Equal(t, "Dev", pr.Author)
	assert.Equal(t, "feature/login", pr.SourceBranch)
	assert.Equal(t, "main", pr.TargetBranch)
	assert.Equal(t, "abc123", pr.HeadSHA)
}

func TestListCommentsFollowsNextAndSkipsDeleted(t *testing.T) {
	var srvURL string
	p, url := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			json.NewEncoder(w).Encode(map[string]any{
				"values": []map[string]any{
					{"id": 3, "content": map[string]any{"raw": "third"}, "user": map[string]any{"display_name": "Dev"}},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"values": []map[string]any{
				{"id": 1, "content": map[string]any{"raw": "first"}, "inline": map[string]any{"path": "a.go", "to": 4}, "user": map[string]any{"display_name": "Dev"}},
				{"id": 2, "content": map[string]any{"raw": "gone"}, "deleted": true},
			},
			"next": fmt.Sprintf("%s/repositories/team/repo/pullrequests/7/comments?page=2", srvURL),
		})
	}))
	srvURL = url

	comments, err := p.ListComments("team/repo", 7)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, int64(1), comments[0].ID)
	assert.Equal(t, "a.go", comments[0].Path)
	assert.Equal(t, 4, comments[0].Line)
	assert.Equal(t, int64(3), comments[1].ID)
}

func TestCreateCommentInline(t *testing.T) {
	var payload map[string]any
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/team/repo/pullrequests/7/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	}))

	err := p.CreateComment("team/repo", 7, vcs.Anchor{Path: "pkg/server.go", Line: 12}, "off by one")
	require.NoError(t, err)

	content := payload["content"].(map[string]any)
	assert.Equal(t, "off by one", content["raw"])
	inline := payload["inline"].(map[string]any)
	assert.Equal(t, "pkg/server.go", inline["path"])
	assert.Equal(t, float64(12), inline["to"])
}

func TestCreateCommentWithoutAnchorOmitsInline(t *testing.T) {
	var payload map[string]any
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, p.CreateComment("team/repo", 7, vcs.Anchor{}, "general note"))
	_, hasInline := payload["inline"]
	assert.False(t, hasInline)
}

func TestDeleteComment(t *testing.T) {
	var method, path string
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, p.DeleteComment("team/repo", 7, 99))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/repositories/team/repo/pullrequests/7/comments/99", path)
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "not found"}}`, http.StatusNotFound)
	}))

	_, err := p.FetchPR("team/repo", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFormatSuggestionBlock(t *testing.T) {
	p := &Provider{}
	assert.Equal(t, "```\nreturn nil\n```", p.FormatSuggestionBlock("return nil"))
}

func TestFetchPRRetriesServerError(t *testing.T) {
	attempts := 0
	p, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, `{"error":{"message":"down"}}`, http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "title": "Add login", "state": "OPEN"})
	}))
	p.retryCfg = provider.RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
	}

	pr, err := p.FetchPR("team/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pr.Number)
	assert.Equal(t, 2, attempts)
}
