package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crag-dev/crag/internal/review"
	"github.com/crag-dev/crag/internal/vcs"
)

func finding(path, message string) review.Finding {
	f := review.Finding{
		FilePath:  path,
		LineStart: 1,
		Category:  review.CategoryLogicError,
		Severity:  review.SeverityHigh,
		Message:   message,
	}
	f.Fingerprint = review.Fingerprint(f)
	return f
}

func markedComment(id int64, f review.Finding) vcs.Comment {
	return vcs.Comment{ID: id, Path: f.FilePath, Body: "some text\n" + Marker(f.Fingerprint)}
}

func TestExtractFingerprint(t *testing.T) {
	f := finding("a.go", "broken")
	fp, ok := ExtractFingerprint("body\n" + Marker(f.Fingerprint) + "\n")
	require.True(t, ok)
	assert.Equal(t, f.Fingerprint, fp)

	_, ok = ExtractFingerprint("a perfectly human comment")
	assert.False(t, ok)
}

func TestBuildPlanCreatesAndDeletes(t *testing.T) {
	stale := finding("a.go", "old problem, now fixed")
	kept := finding("b.go", "still a problem")
	fresh := finding("c.go", "new problem")

	existing := []vcs.Comment{
		markedComment(1, stale),
		markedComment(2, kept),
		{ID: 3, Body: "human comment, hands off"},
	}

	plan := BuildPlan([]review.Finding{kept, fresh}, existing)

	require.Len(t, plan.Delete, 1)
	assert.Equal(t, int64(1), plan.Delete[0].ID)
	require.Len(t, plan.Create, 1)
	assert.Equal(t, "c.go", plan.Create[0].FilePath)
	assert.Equal(t, 1, plan.Unchanged)
}

func TestBuildPlanNeverTouchesUnmarkedComments(t *testing.T) {
	existing := []vcs.Comment{
		{ID: 1, Body: "looks good to me"},
		{ID: 2, Body: "please rename this variable"},
	}

	plan := BuildPlan(nil, existing)
	assert.Empty(t, plan.Delete, "human comments must never be deleted")
	assert.Empty(t, plan.Create)
}

func TestBuildPlanIdempotent(t *testing.T) {
	f1 := finding("a.go", "one")
	f2 := finding("b.go", "two")
	findings := []review.Finding{f1, f2}

	// Simulate the platform state after a successful reconcile.
	existing := []vcs.Comment{markedComment(10, f1), markedComment(11, f2)}

	plan := BuildPlan(findings, existing)
	assert.True(t, plan.Empty(), "an unchanged finding set must produce zero operations")
	assert.Equal(t, 2, plan.Unchanged)
}

// fakeVCS records operations for Reconcile tests.
type fakeVCS struct {
	comments []vcs.Comment
	created  []string
	deleted  []int64
	nextID   int64
}

func (f *fakeVCS) Info() vcs.ProviderInfo { return vcs.ProviderInfo{Name: "fake"} }

func (f *fakeVCS) FetchPR(string, int64) (*vcs.PullRequest, error) {
	return &vcs.PullRequest{}, nil
}

func (f *fakeVCS) ListComments(string, int64) ([]vcs.Comment, error) {
	out := make([]vcs.Comment, len(f.comments))
	copy(out, f.comments)
	return out, nil
}

func (f *fakeVCS) CreateComment(_ string, _ int64, anchor vcs.Anchor, body string) error {
	f.nextID++
	f.comments = append(f.comments, vcs.Comment{ID: f.nextID, Path: anchor.Path, Line: anchor.Line, Body: body})
	f.created = append(f.created, anchor.Path)
	return nil
}

func (f *fakeVCS) DeleteComment(_ string, _ int64, commentID int64) error {
	for i, c := range f.comments {
		if c.ID == commentID {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			break
		}
	}
	f.deleted = append(f.deleted, commentID)
	return nil
}

func (f *fakeVCS) FormatSuggestionBlock(s string) string { return "```suggestion\n" + s + "\n```" }

func (f *fakeVCS) Validate() error { return nil }

func TestReconcileTwiceIsNoOp(t *testing.T) {
	platform := &fakeVCS{comments: []vcs.Comment{{ID: 1, Body: "human note"}}}
	m := &Manager{Provider: platform, Repo: "org/repo", Number: 7}

	findings := []review.Finding{finding("a.go", "one"), finding("b.go", "two")}

	plan, err := m.Reconcile(findings)
	require.NoError(t, err)
	assert.Len(t, plan.Create, 2)
	assert.Empty(t, plan.Delete)

	plan, err = m.Reconcile(findings)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Len(t, platform.created, 2, "second run must not create duplicates")
	assert.Empty(t, platform.deleted)
}

func TestReconcileReplacesStaleComments(t *testing.T) {
	stale := finding("a.go", "stale")
	platform := &fakeVCS{comments: []vcs.Comment{markedComment(1, stale)}, nextID: 1}
	m := &Manager{Provider: platform, Repo: "org/repo", Number: 7}

	fresh := finding("a.go", "fresh")
	_, err := m.Reconcile([]review.Finding{fresh})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, platform.deleted)
	assert.Equal(t, []string{"a.go"}, platform.created)
}

func TestReconcileConfirmDeclinedKeepsStale(t *testing.T) {
	stale := finding("a.go", "stale")
	platform := &fakeVCS{comments: []vcs.Comment{markedComment(1, stale)}, nextID: 1}
	m := &Manager{
		Provider: platform,
		Repo:     "org/repo",
		Number:   7,
		Confirm:  func(*Plan) bool { return false },
	}

	fresh := finding("b.go", "fresh")
	_, err := m.Reconcile([]review.Finding{fresh})
	require.NoError(t, err)

	assert.Empty(t, platform.deleted, "declined confirmation must skip deletions")
	assert.Equal(t, []string{"b.go"}, platform.created)
}

func TestFormatBodyCarriesMarkerAndSuggestion(t *testing.T) {
	f := finding("a.go", "use a prepared statement")
	f.Suggestion = "db.Query(q, id)"

	body := FormatBody(f, func(s string) string { return "```suggestion\n" + s + "\n```" })

	assert.Contains(t, body, Marker(f.Fingerprint))
	assert.Contains(t, body, "```suggestion\ndb.Query(q, id)\n```")
	assert.Contains(t, body, "use a prepared statement")
}
