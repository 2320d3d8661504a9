package review

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/crag-dev/crag/internal/common"
)

// ParseFindings reads a model answer into findings. The payload may be
// a bare array, a fenced array, or an object wrapping the array under
// a findings-like key. Unparseable answers yield no findings, not an
// error: a reviewer that says nothing usable has nothing to report.
func ParseFindings(content string) []Finding {
	payload := common.ExtractJSONPayload(content)
	if payload == "" {
		return nil
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		var obj map[string]any
		if err := json.Unmarshal([]byte(payload), &obj); err != nil {
			return nil
		}
		items = pickFindingItems(obj)
	}

	var findings []Finding
	for _, m := range items {
		f, ok := toFinding(m)
		if !ok {
			continue
		}
		findings = append(findings, f)
	}
	return findings
}

func pickFindingItems(obj map[string]any) []map[string]any {
	for _, key := range []string{"findings", "comments", "issues", "results"} {
		raw, ok := obj[key].([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func toFinding(m map[string]any) (Finding, bool) {
	path := firstString(m, "file_path", "file", "path", "filename")
	msg := firstString(m, "message", "description", "title")
	if strings.TrimSpace(path) == "" || strings.TrimSpace(msg) == "" {
		return Finding{}, false
	}

	category := CategoryOther
	if c, err := ParseCategory(firstString(m, "category", "kind", "type")); err == nil {
		category = c
	}

	f := Finding{
		FilePath:   strings.TrimSpace(path),
		LineStart:  firstInt(m, "line_start", "line", "start_line"),
		LineEnd:    firstInt(m, "line_end", "end_line"),
		Category:   category,
		Severity:   ParseSeverity(firstString(m, "severity", "level", "priority")),
		Message:    strings.TrimSpace(msg),
		Suggestion: strings.TrimSpace(firstString(m, "suggestion", "fix", "patch")),
	}
	if f.LineEnd == 0 {
		f.LineEnd = f.LineStart
	}
	f.Fingerprint = Fingerprint(f)
	return f, true
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}
