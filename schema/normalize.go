package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Canonical platform spellings. Input matching is case-insensitive, the
// stored form is always one of these.
const (
	PlatformLLM    = "LLM"
	PlatformWeb    = "Web"
	PlatformMobile = "Mobile"
	PlatformAPI    = "API"
)

var Platforms = []string{PlatformLLM, PlatformWeb, PlatformMobile, PlatformAPI}

const (
	minCvssScore = 0.0
	maxCvssScore = 10.0
)

// NormalizePlatform trims the input and matches it case-insensitively
// against the canonical platform names.
func NormalizePlatform(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", NewValidationError("platform", "platform must be a string")
	}
	v := strings.TrimSpace(s)
	for _, p := range Platforms {
		if strings.EqualFold(v, p) {
			return p, nil
		}
	}
	return "", NewValidationError("platform", fmt.Sprintf("platform must be one of %v", Platforms))
}

// NormalizeAutomated accepts a boolean or a yes/no style token and returns
// the boolean form. Booleans pass through unchanged.
func NormalizeAutomated(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "true", "1":
			return true, nil
		case "no", "n", "false", "0":
			return false, nil
		}
	}
	return false, NewValidationError("automated", "automated must be a boolean or one of yes/no/true/false/1/0")
}

// ValidateScore parses a cvss score given as a number or a numeric string
// and checks it lies in [0.0, 10.0]. A nil value is reported as absent.
func ValidateScore(raw any) (float64, bool, error) {
	var score float64
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		score = v
	case int:
		score = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, NewValidationError("cvss_score", "cvss_score must be a number")
		}
		score = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, NewValidationError("cvss_score", "cvss_score must be a number")
		}
		score = f
	default:
		return 0, false, NewValidationError("cvss_score", "cvss_score must be a number")
	}
	if score < minCvssScore || score > maxCvssScore {
		return 0, false, NewValidationError("cvss_score", "cvss_score must be between 0.0 and 10.0")
	}
	return score, true, nil
}
