package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullPayload() map[string]any {
	return map[string]any{
		"vuln_id":        "TCS_1",
		"vuln_name":      "Prompt Injection",
		"platform":       "llm",
		"analysis_type":  "manual",
		"owasp_ref":      "OWASP Top 10 2025:LLM01 - Prompt Injection",
		"compliance":     "NIST AI RMF",
		"vuln_abstract":  "Attacker-controlled input alters model behavior.",
		"description":    "Untrusted input is concatenated into the prompt.",
		"recommendation": "Separate instructions from data.",
		"example":        "Ignore previous instructions and ...",
		"cvss_score":     "8.1",
		"automated":      "yes",
		"severity":       "High",
	}
}

func TestLoadRecord(t *testing.T) {
	assert := require.New(t)

	tc, err := LoadRecord(fullPayload())
	assert.Nil(err)
	assert.Equal("TCS_1", tc.VulnID)
	assert.Equal("Prompt Injection", tc.VulnName)
	assert.Equal(PlatformLLM, tc.Platform)
	assert.Equal("High", tc.Severity)
	assert.NotNil(tc.CvssScore)
	assert.Equal(8.1, *tc.CvssScore)
	assert.NotNil(tc.Automated)
	assert.True(*tc.Automated)
}

func TestLoadRecordMissingFieldsAggregated(t *testing.T) {
	assert := require.New(t)

	_, err := LoadRecord(map[string]any{"severity": "Low"})
	assert.NotNil(err)
	verr, ok := err.(*ValidationError)
	assert.True(ok)
	assert.Len(verr.Fields, 3)
	fields := make([]string, 0, 3)
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal([]string{"vuln_id", "vuln_name", "platform"}, fields)
}

func TestLoadRecordInvalidValues(t *testing.T) {
	assert := require.New(t)

	p := fullPayload()
	p["platform"] = "Windows"
	_, err := LoadRecord(p)
	assert.ErrorContains(err, "platform must be one of")

	p = fullPayload()
	p["automated"] = "maybe"
	_, err = LoadRecord(p)
	assert.ErrorContains(err, "automated")

	p = fullPayload()
	p["cvss_score"] = 10.5
	_, err = LoadRecord(p)
	assert.ErrorContains(err, "between 0.0 and 10.0")

	p = fullPayload()
	p["description"] = 12345
	_, err = LoadRecord(p)
	assert.ErrorContains(err, "must be a string")
}

// Unrecognized keys are dropped, never stored and never an error.
func TestLoadRecordDropsUnknownKeys(t *testing.T) {
	assert := require.New(t)

	p := fullPayload()
	p["@context"] = "https://schema.org/"
	p["shoe_size"] = 43
	tc, err := LoadRecord(p)
	assert.Nil(err)

	data, err := json.Marshal(tc)
	assert.Nil(err)
	assert.NotContains(string(data), "shoe_size")
	assert.NotContains(string(data), "@context")
}

// A record that passed LoadRecord must reload to an identical record.
func TestLoadRecordRoundTrip(t *testing.T) {
	assert := require.New(t)

	first, err := LoadRecord(fullPayload())
	assert.Nil(err)

	data, err := json.Marshal(first)
	assert.Nil(err)
	var raw map[string]any
	assert.Nil(json.Unmarshal(data, &raw))

	second, err := LoadRecord(raw)
	assert.Nil(err)
	assert.Equal(first, second)
}

func TestLoadPartialUpdate(t *testing.T) {
	assert := require.New(t)

	id, update, err := LoadPartialUpdate(map[string]any{
		"vuln_id":  "TCS_1",
		"severity": "High",
	})
	assert.Nil(err)
	assert.Equal("TCS_1", id)
	assert.Equal(map[string]any{"severity": "High"}, update)
}

// Placeholder required fields used during validation must never end up in
// the update set.
func TestLoadPartialUpdateNoPlaceholderLeak(t *testing.T) {
	assert := require.New(t)

	_, update, err := LoadPartialUpdate(map[string]any{
		"vuln_id":    "TCS_1",
		"cvss_score": "9.9",
		"automated":  "no",
	})
	assert.Nil(err)
	assert.NotContains(update, "vuln_name")
	assert.NotContains(update, "platform")
	assert.NotContains(update, "vuln_id")
	assert.Equal(9.9, update["cvss_score"])
	assert.Equal(false, update["automated"])
}

func TestLoadPartialUpdateNormalizesPlatform(t *testing.T) {
	assert := require.New(t)

	_, update, err := LoadPartialUpdate(map[string]any{
		"vuln_id":  "TCS_1",
		"platform": "mobile",
	})
	assert.Nil(err)
	assert.Equal(map[string]any{"platform": PlatformMobile}, update)
}

func TestLoadPartialUpdateEdgeCases(t *testing.T) {
	assert := require.New(t)

	// missing vuln_id
	_, _, err := LoadPartialUpdate(map[string]any{"severity": "Low"})
	assert.ErrorContains(err, "vuln_id")

	// id only, nothing to update
	id, update, err := LoadPartialUpdate(map[string]any{"vuln_id": "TCS_2"})
	assert.Nil(err)
	assert.Equal("TCS_2", id)
	assert.Empty(update)

	// invalid value in the partial payload
	_, _, err = LoadPartialUpdate(map[string]any{"vuln_id": "TCS_2", "cvss_score": "nope"})
	assert.ErrorContains(err, "cvss_score")
}
