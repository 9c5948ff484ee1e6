package schema

import (
	"fmt"
	"strings"
)

// GenerateRequest is the input to the metadata generation endpoint. It is
// transient and never persisted.
type GenerateRequest struct {
	VulnName string `json:"vuln_name"`
	Platform string `json:"platform"`
}

// LoadGenerateRequest validates a generation payload. Unlike record loading
// the platform must match one of the canonical tokens exactly, with no case
// normalization, since it selects the prompt variant.
func LoadGenerateRequest(raw map[string]any) (*GenerateRequest, error) {
	if raw == nil {
		return nil, NewValidationError("payload", "payload must be a JSON object")
	}
	name, _ := raw["vuln_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("vuln_name", "vuln_name must be a non-empty string")
	}
	platform, _ := raw["platform"].(string)
	for _, p := range Platforms {
		if platform == p {
			return &GenerateRequest{VulnName: name, Platform: platform}, nil
		}
	}
	return nil, NewValidationError("platform", fmt.Sprintf("platform must be exactly one of %v", Platforms))
}
