package llm

import (
	"context"

	"github.com/kataras/golog"

	"github.com/tcsec/vulncases/schema"
)

// ParseFailureError means the provider returned text that no extraction
// step could turn into a JSON object. The raw output is kept for
// diagnostics.
type ParseFailureError struct {
	Raw string
}

func (e *ParseFailureError) Error() string {
	return "model output could not be parsed as JSON"
}

// StructuredClient is the single-attempt generation contract: a parsed
// object when available, otherwise the raw model text.
type StructuredClient interface {
	Generate(ctx context.Context, prompt string) (map[string]any, string, error)
}

// Service orchestrates one metadata generation: build the prompt, invoke
// the client, repair the output when needed and inject the linked-data
// tags.
type Service struct {
	client StructuredClient
	log    *golog.Logger
}

func NewService(client StructuredClient) *Service {
	return &Service{
		client: client,
		log:    golog.Child("[llm]"),
	}
}

func (s *Service) GenerateMetadata(ctx context.Context, req *schema.GenerateRequest) (map[string]any, error) {
	prompt := BuildPrompt(req.VulnName, req.Platform)
	obj, raw, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		s.log.Debugf("falling back to JSON extraction for %q", req.VulnName)
		obj = ExtractJSON(raw)
		if obj == nil {
			return nil, &ParseFailureError{Raw: raw}
		}
	}
	if _, ok := obj["@context"]; !ok {
		obj["@context"] = ContextTag
	}
	if _, ok := obj["@type"]; !ok {
		obj["@type"] = TypeTag
	}
	return obj, nil
}
