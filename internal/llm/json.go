package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// ParseJSONResponse decodes a model response that should be a single
// JSON object. Small local models often wrap the object in a markdown
// code fence or stray whitespace; both are tolerated. Anything that
// still fails to decode yields nil.
func ParseJSONResponse(text string) map[string]any {
	text = stripFences(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		log.Printf("Model response is not valid JSON: %v", err)
		return nil
	}
	return obj
}

// stripFences removes a surrounding ``` block, with or without a
// language tag on the opening line.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines) - 1
	for i := end; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}
