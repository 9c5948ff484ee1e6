package llm

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/tcsec/vulncases/schema"
)

type stubClient struct {
	obj map[string]any
	raw string
	err error

	prompt string
}

func (s *stubClient) Generate(_ context.Context, prompt string) (map[string]any, string, error) {
	s.prompt = prompt
	return s.obj, s.raw, s.err
}

func generateReq() *schema.GenerateRequest {
	return &schema.GenerateRequest{VulnName: "Prompt Injection", Platform: "LLM"}
}

func TestServiceStructuredResult(t *testing.T) {
	assert := require.New(t)

	stub := &stubClient{obj: map[string]any{
		"owasp_ref":      "OWASP Top 10 2025:LLM01 - Prompt Injection",
		"compliance":     "NIST AI RMF",
		"vuln_abstract":  "a",
		"description":    "b",
		"recommendation": "c",
		"example":        "d",
	}}
	svc := NewService(stub)

	obj, err := svc.GenerateMetadata(context.Background(), generateReq())
	assert.Nil(err)
	assert.Equal(ContextTag, obj["@context"])
	assert.Equal(TypeTag, obj["@type"])
	assert.Equal("NIST AI RMF", obj["compliance"])
	assert.Equal(BuildPrompt("Prompt Injection", "LLM"), stub.prompt)
}

// Tags already present in the model output are not overwritten.
func TestServiceKeepsExistingTags(t *testing.T) {
	assert := require.New(t)

	stub := &stubClient{obj: map[string]any{"@context": "custom", "@type": "custom"}}
	svc := NewService(stub)

	obj, err := svc.GenerateMetadata(context.Background(), generateReq())
	assert.Nil(err)
	assert.Equal("custom", obj["@context"])
	assert.Equal("custom", obj["@type"])
}

func TestServiceRepairsRawText(t *testing.T) {
	assert := require.New(t)

	stub := &stubClient{raw: "sure! {'owasp_ref': 'MASVS-CRYPTO-1'}"}
	svc := NewService(stub)

	obj, err := svc.GenerateMetadata(context.Background(), generateReq())
	assert.Nil(err)
	assert.Equal("MASVS-CRYPTO-1", obj["owasp_ref"])
	assert.Equal(ContextTag, obj["@context"])
}

func TestServiceParseFailure(t *testing.T) {
	assert := require.New(t)

	stub := &stubClient{raw: "I cannot answer that"}
	svc := NewService(stub)

	_, err := svc.GenerateMetadata(context.Background(), generateReq())
	var parseErr *ParseFailureError
	assert.ErrorAs(err, &parseErr)
	assert.Equal("I cannot answer that", parseErr.Raw)
}

func TestServiceGenerationError(t *testing.T) {
	assert := require.New(t)

	stub := &stubClient{err: &GenerationError{Err: errors.New("quota exceeded")}}
	svc := NewService(stub)

	_, err := svc.GenerateMetadata(context.Background(), generateReq())
	var genErr *GenerationError
	assert.ErrorAs(err, &genErr)
}
