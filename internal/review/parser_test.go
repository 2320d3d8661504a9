package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFindingsBareArray(t *testing.T) {
	content := `[
		{"file_path": "a.go", "line_start": 3, "category": "LogicError", "severity": "HIGH", "message": "broken loop"},
		{"file_path": "b.go", "category": "Security", "severity": "critical", "message": "hardcoded secret", "suggestion": "use env var"}
	]`

	findings := ParseFindings(content)
	require.Len(t, findings, 2)

	assert.Equal(t, "a.go", findings[0].FilePath)
	assert.Equal(t, CategoryLogicError, findings[0].Category)
	assert.Equal(t, SeverityHigh, findings[0].Severity)
	assert.Equal(t, 3, findings[0].LineStart)
	assert.Equal(t, 3, findings[0].LineEnd)
	assert.NotEmpty(t, findings[0].Fingerprint)

	assert.Equal(t, SeverityCritical, findings[1].Severity)
	assert.Equal(t, "use env var", findings[1].Suggestion)
}

func TestParseFindingsFencedBlock(t *testing.T) {
	content := "Here is my review:\n```json\n[{\"file_path\": \"x.go\", \"category\": \"CodeStyle\", \"message\": \"long line\"}]\n```"

	findings := ParseFindings(content)
	require.Len(t, findings, 1)
	assert.Equal(t, CategoryCodeStyle, findings[0].Category)
}

func TestParseFindingsObjectWrapper(t *testing.T) {
	content := `{"findings": [{"file": "y.go", "kind": "Performance", "message": "n+1 query", "line": 12}]}`

	findings := ParseFindings(content)
	require.Len(t, findings, 1)
	assert.Equal(t, "y.go", findings[0].FilePath)
	assert.Equal(t, CategoryPerformance, findings[0].Category)
	assert.Equal(t, 12, findings[0].LineStart)
}

func TestParseFindingsGarbage(t *testing.T) {
	assert.Empty(t, ParseFindings("the code looks great, ship it"))
	assert.Empty(t, ParseFindings(""))
	assert.Empty(t, ParseFindings("[not json"))
}

func TestParseFindingsSkipsIncompleteEntries(t *testing.T) {
	content := `[
		{"file_path": "", "category": "LogicError", "message": "no path"},
		{"file_path": "a.go", "category": "LogicError", "message": ""},
		{"file_path": "a.go", "category": "LogicError", "message": "kept"}
	]`

	findings := ParseFindings(content)
	require.Len(t, findings, 1)
	assert.Equal(t, "kept", findings[0].Message)
}

func TestParseFindingsUnknownCategoryFallsBackToOther(t *testing.T) {
	content := `[{"file_path": "a.go", "category": "Nonsense", "message": "hmm"}]`

	findings := ParseFindings(content)
	require.Len(t, findings, 1)
	assert.Equal(t, CategoryOther, findings[0].Category)
}

func TestParseCategorySpellings(t *testing.T) {
	for _, spelling := range []string{"LogicError", "logicerror", "logic_error", "LOGIC-ERROR"} {
		c, err := ParseCategory(spelling)
		require.NoError(t, err, spelling)
		assert.Equal(t, CategoryLogicError, c)
	}

	_, err := ParseCategory("bogus")
	assert.Error(t, err)
}

func TestParseSeverityDefaultsToMedium(t *testing.T) {
	assert.Equal(t, SeverityMedium, ParseSeverity("whatever"))
	assert.Equal(t, SeverityLow, ParseSeverity("low"))
	assert.Equal(t, SeverityCritical, ParseSeverity(" CRITICAL "))
}
