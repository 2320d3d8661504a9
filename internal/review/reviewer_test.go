package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/contextbuilder"
	"github.com/crag-dev/crag/internal/diffparse"
	"github.com/crag-dev/crag/internal/filter"
	"github.com/crag-dev/crag/internal/provider"
)

// mockProvider implements provider.AIProvider for testing.
type mockProvider struct {
	response string
	calls    int
	lastReq  provider.CompletionRequest
}

func (m *mockProvider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{Name: "mock"}
}

func (m *mockProvider) Complete(_ context.Context, req provider.CompletionRequest) (*provider.CompletionResponse, error) {
	m.calls++
	m.lastReq = req
	return &provider.CompletionResponse{Content: m.response}, nil
}

func (m *mockProvider) Validate(_ context.Context) error { return nil }

func reviewChangeset() *diffparse.Changeset {
	return &diffparse.Changeset{Files: []diffparse.FileChange{
		{Path: "pkg/server.go", Status: diffparse.StatusModified},
		{Path: "pkg/old.go", Status: diffparse.StatusDeleted},
		{Path: "pkg/server_test.go", Status: diffparse.StatusModified},
	}}
}

func TestReviewDiscardsOutOfChangesetFindings(t *testing.T) {
	p := &mockProvider{response: `[
		{"file_path": "pkg/server.go", "category": "LogicError", "message": "kept"},
		{"file_path": "unrelated.go", "category": "LogicError", "message": "dropped, not changed"},
		{"file_path": "pkg/old.go", "category": "LogicError", "message": "dropped, deleted file"},
		{"file_path": "pkg/server_test.go", "category": "LogicError", "message": "dropped, test file"}
	]`}

	r := &Reviewer{
		Provider: p,
		Model:    "mock-model",
		Focus:    []Category{CategoryLogicError},
		Rules:    &filter.Rules{TestKeywords: []string{"test"}},
	}

	state := &contextbuilder.State{Files: map[string]contextbuilder.ContextFile{}}
	findings, err := r.Review(context.Background(), state, reviewChangeset(), "diff")
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, "pkg/server.go", findings[0].FilePath)
	assert.Equal(t, 1, p.calls, "the reviewer makes exactly one completion call")
}

func TestReviewHonorsFocusAllowList(t *testing.T) {
	p := &mockProvider{response: `[
		{"file_path": "pkg/server.go", "category": "LogicError", "message": "kept"},
		{"file_path": "pkg/server.go", "category": "CodeStyle", "message": "dropped, out of focus"},
		{"file_path": "pkg/server.go", "category": "Security", "message": "also kept"}
	]`}

	r := &Reviewer{
		Provider: p,
		Model:    "mock-model",
		Focus:    []Category{CategoryLogicError, CategorySecurity},
	}

	state := &contextbuilder.State{Files: map[string]contextbuilder.ContextFile{}}
	findings, err := r.Review(context.Background(), state, reviewChangeset(), "diff")
	require.NoError(t, err)

	require.Len(t, findings, 2)
	categories := []Category{findings[0].Category, findings[1].Category}
	assert.ElementsMatch(t, []Category{CategoryLogicError, CategorySecurity}, categories)
}

func TestReviewEmptyAnswerMeansNoFindings(t *testing.T) {
	p := &mockProvider{response: `[]`}
	r := &Reviewer{Provider: p, Model: "mock-model", Focus: AllCategories()}

	state := &contextbuilder.State{Files: map[string]contextbuilder.ContextFile{}}
	findings, err := r.Review(context.Background(), state, reviewChangeset(), "diff")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReviewRequestsDeterministicSampling(t *testing.T) {
	p := &mockProvider{response: `[]`}
	r := &Reviewer{Provider: p, Model: "mock-model", Focus: AllCategories()}

	state := &contextbuilder.State{Files: map[string]contextbuilder.ContextFile{}}
	_, err := r.Review(context.Background(), state, reviewChangeset(), "diff")
	require.NoError(t, err)

	require.NotNil(t, p.lastReq.Temperature)
	assert.Zero(t, *p.lastReq.Temperature)
}
