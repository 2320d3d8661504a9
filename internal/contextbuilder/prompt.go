package contextbuilder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crag-dev/crag/internal/common"
)

const contextSystemPrompt = `You are a code analysis assistant deciding which repository files a reviewer needs to read to understand a changeset. You only respond with JSON.`

// roundResponse is the schema the backend must answer with.
type roundResponse struct {
	RequiredAdditionalFiles []fileRequest `json:"required_additional_files"`
	IsSufficient            bool          `json:"is_sufficient"`
	Reasoning               string        `json:"reasoning"`
}

type fileRequest struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func buildRoundPrompt(in Input, state *State, maxFiles int, tracked []string) string {
	var b strings.Builder

	b.WriteString("Decide whether the current context is sufficient to review this changeset.\n\n")

	if strings.TrimSpace(in.CommitMessages) != "" {
		b.WriteString("## Commit messages\n")
		b.WriteString(strings.TrimSpace(in.CommitMessages))
		b.WriteString("\n\n")
	}

	b.WriteString("## Changed files\n")
	for _, fc := range in.Changeset.Files {
		fmt.Fprintf(&b, "- %s (%s)\n", fc.Path, fc.Status)
	}
	b.WriteString("\n## Diff\n```diff\n")
	b.WriteString(in.Diff)
	b.WriteString("\n```\n")

	b.WriteString("\n## Files already in context\n")
	for _, p := range sortedPaths(state) {
		b.WriteString("- " + p + "\n")
	}
	fmt.Fprintf(&b, "\nRemaining file budget: %d\n", maxFiles-len(state.Files))

	b.WriteString("\n## Repository files\n")
	b.WriteString(strings.Join(tracked, "\n"))
	b.WriteString("\n")

	b.WriteString(`
Respond with JSON only, using exactly this schema:
{
  "required_additional_files": [{"path": "relative/path", "reason": "why it is needed"}],
  "is_sufficient": true or false,
  "reasoning": "short explanation"
}

Request only files that exist in the repository list above and are not
already in context. If the context is enough to review the change,
return is_sufficient true and an empty file list.`)

	return b.String()
}

// parseRoundResponse extracts the JSON decision from a model answer.
// ok=false means the answer could not be understood at all.
func parseRoundResponse(content string) (*roundResponse, bool) {
	payload := common.ExtractJSONPayload(content)
	if payload == "" {
		return nil, false
	}
	var resp roundResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}
