package preprocess

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/perr"
	"github.com/pollux-gateway/pollux/internal/signature"
)

func newTestPreprocessor() *Preprocessor {
	return New(signature.NewCache(0, 0))
}

func TestPrepareRejectsInvalidJSON(t *testing.T) {
	p := newTestPreprocessor()
	_, err := p.Prepare(DialectGeminiNative, "geminicli", "gemini-2.5-pro", false, []byte("not-json"))
	if err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}
	perrErr, ok := err.(*perr.Error)
	if !ok || perrErr.Status != 400 {
		t.Fatalf("expected a 400 validation error, got %v", err)
	}
}

func TestPrepareRejectsMissingContents(t *testing.T) {
	p := newTestPreprocessor()
	_, err := p.Prepare(DialectGeminiNative, "geminicli", "gemini-2.5-pro", false, []byte(`{}`))
	if err == nil {
		t.Fatalf("expected an error for missing contents")
	}
}

func TestPrepareNormalizesSystemInstructionForGeminiNative(t *testing.T) {
	p := newTestPreprocessor()
	in := []byte(`{"contents":[{"role":"user","parts":[{"text":"hi"}]}],"systemInstruction":{"parts":[{"text":"be"},{"text":"concise"}]}}`)

	prepared, err := p.Prepare(DialectGeminiNative, "geminicli", "gemini-2.5-pro", false, in)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := gjson.GetBytes(prepared.Body, "systemInstruction.parts.0.text").String(); got != "be\n\nconcise" {
		t.Fatalf("systemInstruction = %q", got)
	}
}

func TestPrepareTranslatesOpenAIDialect(t *testing.T) {
	p := newTestPreprocessor()
	in := []byte(`{"messages":[{"role":"user","content":"hello"}]}`)

	prepared, err := p.Prepare(DialectOpenAIChat, "geminicli", "gemini-2.5-pro", false, in)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := gjson.GetBytes(prepared.Body, "contents.0.parts.0.text").String(); got != "hello" {
		t.Fatalf("translated text = %q", got)
	}
}

func TestPrepareStampsStreamFlag(t *testing.T) {
	p := newTestPreprocessor()
	in := []byte(`{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`)

	prepared, err := p.Prepare(DialectGeminiNative, "geminicli", "gemini-2.5-pro", true, in)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !prepared.Stream {
		t.Fatalf("expected Stream to be true")
	}
}

func TestPreparePatchesOutboundThoughtSignatureMiss(t *testing.T) {
	p := newTestPreprocessor()
	in := []byte(`{"contents":[{"role":"model","parts":[{"thought":true,"text":"pondering"}]}]}`)

	prepared, err := p.Prepare(DialectGeminiNative, "geminicli", "gemini-2.5-pro", false, in)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := gjson.GetBytes(prepared.Body, "contents.0.parts.0.thoughtSignature").String(); got != signature.FallbackSignature {
		t.Fatalf("thoughtSignature = %q, want fallback", got)
	}
}
