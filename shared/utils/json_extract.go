package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonBlockRegex = regexp.MustCompile("(?s)```json\\s*([\\s\\S]*?)\\s*```")
	anyBlockRegex  = regexp.MustCompile("(?s)```\\s*([\\s\\S]*?)\\s*```")
)

func isValidJSON(s string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}

// ExtractJSONContent достает JSON-объект из ответа модели: сначала из блока ```json```,
// затем из любого блока ```...```, затем между первой "{" и последней "}".
// Возвращает пустую строку, если валидный JSON не найден.
func ExtractJSONContent(rawText string) string {
	rawText = strings.TrimSpace(rawText)
	if isValidJSON(rawText) {
		return rawText
	}

	for _, re := range []*regexp.Regexp{jsonBlockRegex, anyBlockRegex} {
		if m := re.FindStringSubmatch(rawText); len(m) > 1 {
			candidate := strings.TrimSpace(m[1])
			if isValidJSON(candidate) {
				return candidate
			}
		}
	}

	first := strings.Index(rawText, "{")
	last := strings.LastIndex(rawText, "}")
	if first != -1 && last > first {
		candidate := rawText[first : last+1]
		if isValidJSON(candidate) {
			return candidate
		}
	}
	return ""
}

// StringShort обрезает строку до указанной максимальной длины,
// добавляя многоточие, если строка была обрезана.
func StringShort(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
