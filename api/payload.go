package api

import (
	"github.com/tcsec/vulncases/schema"
)

// ParseItems normalizes the accepted write payload shapes into an ordered
// item slice. Accepted: a single object, an array of objects, or a
// {"test_cases": [...]} wrapper. Shape detection lives here and nowhere
// else.
func ParseItems(payload any) ([]map[string]any, error) {
	switch v := payload.(type) {
	case map[string]any:
		if wrapped, ok := v["test_cases"]; ok {
			list, ok := wrapped.([]any)
			if !ok {
				return nil, schema.NewValidationError("test_cases", "test_cases must be an array")
			}
			return itemList(list)
		}
		return []map[string]any{v}, nil
	case []any:
		return itemList(v)
	}
	return nil, schema.NewValidationError("payload", "payload must be an object or an array")
}

func itemList(list []any) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			return nil, schema.NewValidationError("payload", "every item must be a JSON object")
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseDeleteIDs resolves every accepted delete payload shape to a list of
// vuln_ids: {"vuln_ids": [...]}, an array of strings or objects, a
// {"test_cases": [...]} wrapper, or a single {"vuln_id": "..."} object.
func ParseDeleteIDs(payload any) ([]string, error) {
	var ids []string
	switch v := payload.(type) {
	case map[string]any:
		if raw, ok := v["vuln_ids"].([]any); ok {
			ids = collectStrings(raw)
		} else if raw, ok := v["test_cases"].([]any); ok {
			ids = collectObjectIDs(raw)
		} else if id, ok := v["vuln_id"].(string); ok && id != "" {
			ids = []string{id}
		} else {
			return nil, schema.NewValidationError("payload", "provide a vuln_ids list, a test_cases array or a vuln_id")
		}
	case []any:
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				if e != "" {
					ids = append(ids, e)
				}
			case map[string]any:
				if id, ok := e["vuln_id"].(string); ok && id != "" {
					ids = append(ids, id)
				}
			}
		}
	default:
		return nil, schema.NewValidationError("payload", "provide a vuln_ids list, a test_cases array or a vuln_id")
	}
	if len(ids) == 0 {
		return nil, schema.NewValidationError("payload", "no vuln_ids found to delete")
	}
	return ids, nil
}

func collectStrings(list []any) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := entry.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func collectObjectIDs(list []any) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if item, ok := entry.(map[string]any); ok {
			if id, ok := item["vuln_id"].(string); ok && id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
