package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON object from loosely formatted model output.
// It tries, in order: the whole text, the substring between the first "{"
// and the last "}", and that substring with single quotes swapped for
// double quotes. A nil result is a terminal parse failure, callers must
// not retry.
func ExtractJSON(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if obj := parseObject(text); obj != nil {
		return obj
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}
	candidate := text[start : end+1]
	if obj := parseObject(candidate); obj != nil {
		return obj
	}
	return parseObject(strings.ReplaceAll(candidate, "'", `"`))
}

func parseObject(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}
