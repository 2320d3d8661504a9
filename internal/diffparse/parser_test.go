package diffparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/server.go b/internal/server.go
index 1111111..2222222 100644
--- a/internal/server.go
+++ b/internal/server.go
@@ -10,3 +10,4 @@ func main() {
 	srv := New()
-	srv.Run()
+	srv.Start()
+	srv.Wait()
 }
diff --git a/docs/new.md b/docs/new.md
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/docs/new.md
@@ -0,0 +1,2 @@
+# New
+doc
diff --git a/old/gone.go b/old/gone.go
deleted file mode 100644
index 4444444..0000000
--- a/old/gone.go
+++ /dev/null
@@ -1,1 +0,0 @@
-package old
`

func TestParseChangesetStatuses(t *testing.T) {
	cs, err := ParseChangeset(sampleDiff)
	require.NoError(t, err)
	require.Equal(t, 3, cs.Len())

	status, ok := cs.StatusOf("internal/server.go")
	require.True(t, ok)
	assert.Equal(t, StatusModified, status)

	status, ok = cs.StatusOf("docs/new.md")
	require.True(t, ok)
	assert.Equal(t, StatusAdded, status)

	status, ok = cs.StatusOf("old/gone.go")
	require.True(t, ok)
	assert.Equal(t, StatusDeleted, status)

	_, ok = cs.StatusOf("never/changed.go")
	assert.False(t, ok)
}

func TestParseChangesetStats(t *testing.T) {
	cs, err := ParseChangeset(sampleDiff)
	require.NoError(t, err)

	assert.Equal(t, DiffStats{Additions: 2, Deletions: 1}, cs.Files[0].Stats)

	total := cs.TotalStats()
	assert.Equal(t, 4, total.Additions)
	assert.Equal(t, 2, total.Deletions)
}

func TestParseChangesetHunkLineNumbers(t *testing.T) {
	cs, err := ParseChangeset(sampleDiff)
	require.NoError(t, err)

	hunks := cs.Files[0].Hunks
	require.Len(t, hunks, 1)
	require.NotEmpty(t, hunks[0].Lines)

	first := hunks[0].Lines[0]
	assert.Equal(t, LineContext, first.Type)
	assert.Equal(t, 10, first.OldLineNo)
	assert.Equal(t, 10, first.NewLineNo)
}

func TestParseChangesetEmpty(t *testing.T) {
	cs, err := ParseChangeset("")
	require.NoError(t, err)
	assert.True(t, cs.Empty())

	cs, err = ParseChangeset("   \n  ")
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

func TestParseChangesetSkipsBinaryByExtension(t *testing.T) {
	binDiff := `diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`
	cs, err := ParseChangeset(binDiff)
	require.NoError(t, err)
	assert.False(t, cs.Contains("logo.png"))
}

func TestChangesetPaths(t *testing.T) {
	cs, err := ParseChangeset(sampleDiff)
	require.NoError(t, err)
	assert.Equal(t, []string{"internal/server.go", "docs/new.md", "old/gone.go"}, cs.Paths())
}
