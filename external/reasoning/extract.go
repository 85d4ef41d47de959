package reasoning

import "strings"

// ExtractJSON pulls the first JSON object out of free-form model text. Models
// wrap answers in markdown fences or surround them with prose; both are
// stripped by slicing from the first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		// Drop the language tag line (```json).
		text = text[newline+1:]
	}
	if closing := strings.LastIndex(text, "```"); closing >= 0 {
		text = text[:closing]
	}
	return strings.TrimSpace(text)
}
