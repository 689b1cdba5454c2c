package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"urbanisme-platform/pkg/logging"
)

// StructuredExtractor turns unstructured regulatory text into a JSON object
// matching a requested schema. The contract is "a JSON document matching the
// schema, or an error" — callers must still validate the shape defensively,
// since the backing model can drift from the schema.
type StructuredExtractor interface {
	Extract(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error)
}

// HTTPExtractor implements StructuredExtractor against an OpenAI-compatible
// chat-completions endpoint with JSON-schema constrained output.
type HTTPExtractor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logging.StructuredLogger
}

// NewHTTPExtractor creates a new extraction service client
func NewHTTPExtractor(baseURL, apiKey, model string, timeout time.Duration, logger *logging.StructuredLogger) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the prompt with a schema-constrained response format and
// returns the raw JSON content of the first choice.
func (e *HTTPExtractor) Extract(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	reqBody := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   "reglement_extraction",
				Strict: true,
				Schema: schema,
			},
		},
		Temperature: 0,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("extraction service returned invalid payload: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil || *parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("extraction service returned empty content")
	}
	return json.RawMessage(*parsed.Choices[0].Message.Content), nil
}
