package jobmeta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"applykit-backend/internal/llm"
	"applykit-backend/internal/shared/telemetry"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrExtraction   = errors.New("job metadata extraction failed")
)

// ExtractionError wraps the cause of a failed extraction.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract job metadata: %s: %v", e.Reason, e.Err)
	}
	return "extract job metadata: " + e.Reason
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}

// Metadata is the job title and company found in a job description. Either
// field is empty when the model could not determine it.
type Metadata struct {
	JobTitle string `json:"jobTitle"`
	Company  string `json:"company"`
}

const systemPrompt = `You extract metadata from job postings.
Return only a JSON object with exactly two string keys: "jobTitle" and "company".
Use the value "Unknown" for a key you cannot determine. Do not add any other keys or text.`

// Extractor asks the model for a job's title and company.
type Extractor struct {
	llm llm.Completer
}

// NewExtractor builds an Extractor.
func NewExtractor(c llm.Completer) *Extractor {
	return &Extractor{llm: c}
}

// Extract returns the metadata for jobDescription.
func (e *Extractor) Extract(ctx context.Context, jobDescription string) (Metadata, error) {
	jd := strings.TrimSpace(jobDescription)
	if jd == "" {
		return Metadata{}, fmt.Errorf("%w: jobDescription is required", ErrInvalidInput)
	}

	content, err := e.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(systemPrompt), llm.User(jd)},
		Temperature: 0,
		JSON:        true,
		Label:       "job_metadata",
	})
	if err != nil {
		telemetry.Error("jobmeta.extract_failed", map[string]any{"error": err.Error()})
		return Metadata{}, &ExtractionError{Reason: "model call failed", Err: err}
	}

	md, err := parse(content)
	if err != nil {
		telemetry.Error("jobmeta.parse_failed", map[string]any{"error": err.Error(), "bytes": len(content)})
		return Metadata{}, err
	}
	return md, nil
}

func parse(content string) (Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return Metadata{}, &ExtractionError{Reason: "response is not a JSON object", Err: err}
	}

	title, err := stringField(raw, "jobTitle")
	if err != nil {
		return Metadata{}, err
	}
	company, err := stringField(raw, "company")
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{JobTitle: normalize(title), Company: normalize(company)}, nil
}

func stringField(raw map[string]json.RawMessage, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", &ExtractionError{Reason: "missing key " + key}
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return "", &ExtractionError{Reason: "key " + key + " is null"}
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", &ExtractionError{Reason: "key " + key + " is not a string", Err: err}
	}
	return s, nil
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "unknown") {
		return ""
	}
	return s
}
