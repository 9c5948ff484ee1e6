package llm

import (
	"strings"
	"text/template"
)

// Fixed linked-data tags attached to every generated metadata object.
const (
	ContextTag = "https://schema.org/"
	TypeTag    = "SecurityVulnerability"
)

// The six content fields the model must fill. The two linked-data tags are
// injected by the service when the model omits them.
var contentFields = []string{
	"owasp_ref",
	"compliance",
	"vuln_abstract",
	"description",
	"recommendation",
	"example",
}

const metadataPrompt = `You are a senior cybersecurity analyst and GenAI engineer.

Given the vulnerability/test-case name "{{ .VulnName }}" and platform "{{ .Platform }}",
generate a concise, accurate and structured JSON-LD object describing the
vulnerability and its associated metadata.

Follow OWASP standards, NIST AI RMF and ISO/IEC 5338:2023 when applicable.

The object must contain exactly these string fields:
"@context", "@type", "owasp_ref", "compliance", "vuln_abstract",
"description", "recommendation", "example".

Field rules:
- "owasp_ref" uses the format "OWASP Top 10 <year>:<Ax or LLMx> - <name>" for
  the Web, API and LLM platforms and "MASVS-<category>-<x>" for Mobile.
- "compliance" names the applicable frameworks, such as NIST or ISO.
- Every field must be factual and relevant to the specified platform, no
  generic definitions.
- Return only one JSON object: no markdown, no explanations.`

var metadataPromptTpl = template.Must(template.New("metadata").Parse(metadataPrompt))

// BuildPrompt renders the generation instruction for a vulnerability name
// and platform. The same pair always yields byte-identical text.
func BuildPrompt(vulnName, platform string) string {
	var builder strings.Builder
	err := metadataPromptTpl.Execute(&builder, struct {
		VulnName string
		Platform string
	}{VulnName: vulnName, Platform: platform})
	if err != nil {
		// static template over two strings, cannot fail at runtime
		return err.Error()
	}
	return builder.String()
}
