package schema

import (
	"strings"
)

// TestCase is the canonical persisted record for one vulnerability test case.
// vuln_id is the sole update/delete key and never changes once stored.
type TestCase struct {
	VulnID         string   `json:"vuln_id" bson:"vuln_id"`
	VulnName       string   `json:"vuln_name" bson:"vuln_name"`
	Platform       string   `json:"platform" bson:"platform"`
	AnalysisType   string   `json:"analysis_type,omitempty" bson:"analysis_type,omitempty"`
	OwaspRef       string   `json:"owasp_ref,omitempty" bson:"owasp_ref,omitempty"`
	Compliance     string   `json:"compliance,omitempty" bson:"compliance,omitempty"`
	VulnAbstract   string   `json:"vuln_abstract,omitempty" bson:"vuln_abstract,omitempty"`
	Description    string   `json:"description,omitempty" bson:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty" bson:"recommendation,omitempty"`
	Example        string   `json:"example,omitempty" bson:"example,omitempty"`
	CvssScore      *float64 `json:"cvss_score,omitempty" bson:"cvss_score,omitempty"`
	Automated      *bool    `json:"automated,omitempty" bson:"automated,omitempty"`
	Severity       string   `json:"severity,omitempty" bson:"severity,omitempty"`
}

func (t *TestCase) String() string {
	return t.VulnID + " (" + t.Platform + ")"
}

var requiredFields = []string{"vuln_id", "vuln_name", "platform"}

var optionalStringFields = []string{
	"analysis_type",
	"owasp_ref",
	"compliance",
	"vuln_abstract",
	"description",
	"recommendation",
	"example",
	"severity",
}

// Placeholder values spliced into partial updates so the required-field
// check passes. They must never appear in a persisted update set.
const (
	partialNamePlaceholder     = "__partial_update_name__"
	partialPlatformPlaceholder = PlatformWeb
)

// LoadRecord coerces a loosely typed payload into a canonical TestCase.
// Normalization runs before structural validation: platform and automated
// are rewritten first, then required keys are checked (all missing keys are
// reported together), then the score is validated. Unrecognized keys are
// silently dropped.
func LoadRecord(raw map[string]any) (*TestCase, error) {
	if raw == nil {
		return nil, NewValidationError("payload", "payload must be a JSON object")
	}
	data := make(map[string]any, len(raw))
	for k, v := range raw {
		data[k] = v
	}

	if v, ok := data["platform"]; ok && v != nil {
		p, err := NormalizePlatform(v)
		if err != nil {
			return nil, err
		}
		data["platform"] = p
	}
	if v, ok := data["automated"]; ok && v != nil {
		b, err := NormalizeAutomated(v)
		if err != nil {
			return nil, err
		}
		data["automated"] = b
	}

	verr := &ValidationError{}
	for _, key := range requiredFields {
		s, _ := data[key].(string)
		if strings.TrimSpace(s) == "" {
			verr.append(key, "missing required field")
		}
	}
	if verr.hasErrors() {
		return nil, verr
	}

	tc := &TestCase{
		VulnID:   data["vuln_id"].(string),
		VulnName: data["vuln_name"].(string),
		Platform: data["platform"].(string),
	}

	if v, ok := data["cvss_score"]; ok {
		score, present, err := ValidateScore(v)
		if err != nil {
			return nil, err
		}
		if present {
			tc.CvssScore = &score
		}
	}
	if v, ok := data["automated"]; ok && v != nil {
		b := v.(bool)
		tc.Automated = &b
	}

	for _, key := range optionalStringFields {
		v, ok := data[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			verr.append(key, "must be a string")
			continue
		}
		tc.setString(key, s)
	}
	if verr.hasErrors() {
		return nil, verr
	}
	return tc, nil
}

// LoadPartialUpdate validates a partial update payload by re-running
// LoadRecord with placeholder required fields, then keeps only the fields
// that were genuinely present in the caller's payload. The returned map is
// keyed by canonical field name and excludes vuln_id.
func LoadPartialUpdate(raw map[string]any) (string, map[string]any, error) {
	if raw == nil {
		return "", nil, NewValidationError("payload", "payload must be a JSON object")
	}
	id, _ := raw["vuln_id"].(string)
	if strings.TrimSpace(id) == "" {
		return "", nil, NewValidationError("vuln_id", "each update object must include vuln_id")
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "vuln_id" {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return id, map[string]any{}, nil
	}

	synthetic := map[string]any{
		"vuln_id":   id,
		"vuln_name": partialNamePlaceholder,
		"platform":  partialPlatformPlaceholder,
	}
	for k, v := range fields {
		synthetic[k] = v
	}
	tc, err := LoadRecord(synthetic)
	if err != nil {
		return "", nil, err
	}

	update := make(map[string]any, len(fields))
	for key, original := range fields {
		if original == nil {
			continue
		}
		if v, ok := canonicalField(tc, key); ok {
			update[key] = v
		}
	}
	return id, update, nil
}

// canonicalField returns the normalized value a key got after LoadRecord.
// Unrecognized keys report false and stay out of the update set.
func canonicalField(tc *TestCase, key string) (any, bool) {
	switch key {
	case "vuln_name":
		return tc.VulnName, true
	case "platform":
		return tc.Platform, true
	case "analysis_type":
		return tc.AnalysisType, true
	case "owasp_ref":
		return tc.OwaspRef, true
	case "compliance":
		return tc.Compliance, true
	case "vuln_abstract":
		return tc.VulnAbstract, true
	case "description":
		return tc.Description, true
	case "recommendation":
		return tc.Recommendation, true
	case "example":
		return tc.Example, true
	case "severity":
		return tc.Severity, true
	case "cvss_score":
		if tc.CvssScore != nil {
			return *tc.CvssScore, true
		}
	case "automated":
		if tc.Automated != nil {
			return *tc.Automated, true
		}
	}
	return nil, false
}

func (t *TestCase) setString(key, value string) {
	switch key {
	case "analysis_type":
		t.AnalysisType = value
	case "owasp_ref":
		t.OwaspRef = value
	case "compliance":
		t.Compliance = value
	case "vuln_abstract":
		t.VulnAbstract = value
	case "description":
		t.Description = value
	case "recommendation":
		t.Recommendation = value
	case "example":
		t.Example = value
	case "severity":
		t.Severity = value
	}
}
