package preprocess

import (
	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/dialect"
	"github.com/pollux-gateway/pollux/internal/perr"
	"github.com/pollux-gateway/pollux/internal/signature"
)

// Dialect identifies the inbound wire format a request arrived in.
type Dialect int

const (
	// DialectGeminiNative is Gemini's own generateContent/streamGenerateContent shape.
	DialectGeminiNative Dialect = iota
	// DialectOpenAIChat is the OpenAI Chat Completions shape (/v1/chat/completions).
	DialectOpenAIChat
)

// Prepared is the outcome of preprocessing: a Gemini-shaped request body
// ready for the orchestrator, plus the bookkeeping it needs to translate
// the response back and choose a transport mode.
type Prepared struct {
	Dialect  Dialect
	Provider string
	Model    string
	Stream   bool
	Body     []byte
}

// Preprocessor implements component G: inbound validation, systemInstruction
// normalization, dialect translation, and outbound signature patching.
type Preprocessor struct {
	cache *signature.Cache
}

// New builds a Preprocessor backed by the given provider signature cache.
func New(cache *signature.Cache) *Preprocessor {
	return &Preprocessor{cache: cache}
}

// Prepare validates rawBody, translates it to Gemini's generateContent shape
// if it arrived in a different dialect, normalizes systemInstruction, and
// patches outbound thought signatures. It never mutates rawBody in place.
func (p *Preprocessor) Prepare(d Dialect, provider, model string, stream bool, rawBody []byte) (*Prepared, error) {
	if !gjson.ValidBytes(rawBody) {
		return nil, perr.Validation("request body is not valid JSON")
	}

	var body []byte
	switch d {
	case DialectOpenAIChat:
		body = dialect.OpenAIRequestToGemini(model, rawBody)
	default:
		if err := validateGeminiShape(rawBody); err != nil {
			return nil, err
		}
		body = rawBody
	}

	body, err := NormalizeSystemInstruction(body, "systemInstruction")
	if err != nil {
		return nil, perr.Internal("failed to normalize systemInstruction")
	}

	policy := signature.PolicyFor(provider)
	body = signature.PatchOutbound(body, "contents", p.cache, policy)

	return &Prepared{
		Dialect:  d,
		Provider: provider,
		Model:    model,
		Stream:   stream,
		Body:     body,
	}, nil
}

// validateGeminiShape rejects bodies that are not the minimal shape
// generateContent requires: a top-level "contents" array.
func validateGeminiShape(rawJSON []byte) error {
	contents := gjson.GetBytes(rawJSON, "contents")
	if !contents.Exists() {
		return perr.Validation("request body is missing required field %q", "contents")
	}
	if !contents.IsArray() {
		return perr.Validation("request field %q must be an array", "contents")
	}
	return nil
}
