package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kataras/golog"
	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 20 * time.Second

	// Output ceiling for one generation. Metadata objects are small, a
	// runaway response is cut off well before this.
	maxOutputTokens = 2000
)

// ConfigurationError means the client cannot be constructed at all, e.g.
// the provider credential is absent. It is raised at startup, never
// per-request.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// GenerationError wraps a transport/auth/provider-side failure of a single
// generation attempt.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("structured generation failed: %s", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Client calls Gemini with a fixed output schema. Sampling is deterministic
// (temperature 0) and every call is a single bounded attempt, retries are
// the caller's business.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	schema  *genai.Schema
	log     *golog.Logger
}

// NewClient builds the Gemini client. It fails fast with a
// ConfigurationError when the API key is empty.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Message: "missing environment variable: GEMINI_API_KEY"}
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("genai client initialization failed: %s", err)}
	}
	return &Client{
		client:  client,
		model:   model,
		timeout: timeout,
		schema:  metadataSchema(),
		log:     golog.Child("[llm]"),
	}, nil
}

// metadataSchema is the machine-checkable output shape handed to the
// provider: the six content fields are required strings, the linked-data
// tags are optional strings.
func metadataSchema() *genai.Schema {
	properties := map[string]*genai.Schema{
		"@context": {Type: genai.TypeString},
		"@type":    {Type: genai.TypeString},
		"owasp_ref": {
			Type:        genai.TypeString,
			Description: "Platform-specific OWASP mapping. Web/API/LLM: OWASP Top 10 <year>:<Ax or LLMx> - <name>. Mobile: MASVS-<category>-<x>.",
		},
		"compliance": {
			Type:        genai.TypeString,
			Description: "Applicable compliance frameworks like NIST, ISO.",
		},
		"vuln_abstract": {
			Type:        genai.TypeString,
			Description: "Brief summary of the vulnerability and its potential impact.",
		},
		"description": {
			Type:        genai.TypeString,
			Description: "Detailed description of the vulnerability.",
		},
		"recommendation": {
			Type:        genai.TypeString,
			Description: "Mitigation and remediation recommendations.",
		},
		"example": {
			Type:        genai.TypeString,
			Description: "Example exploit scenario for this vulnerability.",
		},
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: properties,
		Required:   contentFields,
	}
}

// Generate performs one structured generation attempt. When the model
// output is strict JSON the parsed object is returned; otherwise the raw
// text is handed back for downstream extraction.
func (c *Client) Generate(ctx context.Context, prompt string) (map[string]any, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   c.schema,
	}
	c.log.Debugf("invoking %s with structured schema enforcement", c.model)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return nil, "", &GenerationError{Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj, text, nil
	}
	c.log.Warnf("model returned non-strict JSON, handing raw text downstream")
	return nil, text, nil
}
