package common

import "strings"

// ExtractJSONPayload pulls a JSON object or array out of a model
// response, tolerating fenced code blocks and surrounding prose.
// Returns "" when no payload is found.
func ExtractJSONPayload(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 3 && strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
			last := len(lines) - 1
			if strings.TrimSpace(lines[last]) == "```" {
				trimmed = strings.TrimSpace(strings.Join(lines[1:last], "\n"))
			}
		}
	}
	if trimmed == "" {
		return ""
	}

	switch trimmed[0] {
	case '[':
		if end := strings.LastIndex(trimmed, "]"); end > 0 {
			return strings.TrimSpace(trimmed[:end+1])
		}
	case '{':
		if end := strings.LastIndex(trimmed, "}"); end > 0 {
			return strings.TrimSpace(trimmed[:end+1])
		}
	default:
		startArr := strings.Index(trimmed, "[")
		endArr := strings.LastIndex(trimmed, "]")
		startObj := strings.Index(trimmed, "{")
		endObj := strings.LastIndex(trimmed, "}")
		// Prefer the payload that starts first so prose mentioning
		// brackets later does not win over the real object.
		if startObj >= 0 && endObj > startObj && (startArr < 0 || startObj < startArr) {
			return strings.TrimSpace(trimmed[startObj : endObj+1])
		}
		if startArr >= 0 && endArr > startArr {
			return strings.TrimSpace(trimmed[startArr : endArr+1])
		}
		if startObj >= 0 && endObj > startObj {
			return strings.TrimSpace(trimmed[startObj : endObj+1])
		}
	}
	return ""
}
