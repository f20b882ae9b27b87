package classify

import (
	"encoding/json"
	"strings"

	"TodoScanner/internal/domain"
)

const noItemsSentinel = "NO_TODOS"

// Bullet markers the lenient list parser accepts.
var bulletPrefixes = []string{"- ", "* ", "• "}

// Phrases that mark a bullet as a "nothing found" filler rather than a todo.
var fillerPhrases = []string{
	"no action items",
	"no todos",
	"cannot identify",
	"no specific action",
	"not the target",
	"no mentions",
}

// ParsedItem is one action item pulled from a raw model reply, before
// conversion to a canonical item.
type ParsedItem struct {
	Action   string `json:"action"`
	Details  string `json:"details"`
	Priority string `json:"priority"`
	Deadline string `json:"deadline"`
}

// ParseResponse extracts items from a model reply that may wrap a JSON
// payload or a bullet list in explanatory prose. The JSON path takes the
// first '{' through the last '}'; the fallback collects bullet-prefixed
// lines. Returns ErrResponseParse when neither form is present.
func ParseResponse(raw string) ([]ParsedItem, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, domain.ErrResponseParse
	}

	if containsSentinel(trimmed) {
		return nil, nil
	}

	if items, ok := parseJSONPayload(trimmed); ok {
		return items, nil
	}

	if items, ok := parseBulletLines(trimmed); ok {
		return items, nil
	}

	return nil, domain.ErrResponseParse
}

func containsSentinel(text string) bool {
	if text == noItemsSentinel {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == noItemsSentinel {
			return true
		}
	}
	return false
}

func parseJSONPayload(text string) ([]ParsedItem, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var payload struct {
		ActionItems []ParsedItem `json:"action_items"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, false
	}
	if payload.ActionItems == nil {
		return nil, false
	}

	items := make([]ParsedItem, 0, len(payload.ActionItems))
	for _, item := range payload.ActionItems {
		if keepItem(item.Action) {
			items = append(items, item)
		}
	}
	return items, true
}

func parseBulletLines(text string) ([]ParsedItem, bool) {
	var items []ParsedItem
	found := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		var action string
		for _, prefix := range bulletPrefixes {
			if strings.HasPrefix(line, prefix) {
				action = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
		if action == "" {
			continue
		}

		found = true
		if keepItem(action) {
			items = append(items, ParsedItem{Action: action})
		}
	}

	return items, found
}

func keepItem(action string) bool {
	action = strings.TrimSpace(action)
	if action == "" {
		return false
	}

	lower := strings.ToLower(action)
	for _, phrase := range fillerPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
