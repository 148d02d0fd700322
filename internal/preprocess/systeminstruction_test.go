package preprocess

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestNormalizeSystemInstructionMergesTextParts(t *testing.T) {
	in := []byte(`{"systemInstruction":{"role":"system","parts":[{"text":"be"},{"text":"concise"}]},"contents":[]}`)

	out, err := NormalizeSystemInstruction(in, "systemInstruction")
	if err != nil {
		t.Fatalf("NormalizeSystemInstruction: %v", err)
	}

	si := gjson.GetBytes(out, "systemInstruction")
	parts := si.Get("parts").Array()
	if len(parts) != 1 {
		t.Fatalf("expected exactly one merged part, got %d", len(parts))
	}
	if got := parts[0].Get("text").String(); got != "be\n\nconcise" {
		t.Fatalf("text = %q, want %q", got, "be\n\nconcise")
	}
	if si.Get("role").Exists() {
		t.Fatalf("expected role to be stripped, got %q", si.Get("role").String())
	}
}

func TestNormalizeSystemInstructionNonTextOnlyBecomesAbsent(t *testing.T) {
	in := []byte(`{"systemInstruction":{"parts":[{"inlineData":{"mimeType":"image/png","data":"abc"}}]},"contents":[]}`)

	out, err := NormalizeSystemInstruction(in, "systemInstruction")
	if err != nil {
		t.Fatalf("NormalizeSystemInstruction: %v", err)
	}

	if gjson.GetBytes(out, "systemInstruction").Exists() {
		t.Fatalf("expected systemInstruction to be absent, got %s", out)
	}
	if !gjson.GetBytes(out, "contents").Exists() {
		t.Fatalf("expected sibling fields to survive")
	}
}

func TestNormalizeSystemInstructionAbsentFieldIsNoop(t *testing.T) {
	in := []byte(`{"contents":[]}`)

	out, err := NormalizeSystemInstruction(in, "systemInstruction")
	if err != nil {
		t.Fatalf("NormalizeSystemInstruction: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("expected input unchanged, got %s", out)
	}
}

func TestNormalizeSystemInstructionDropsWhitespaceOnlyParts(t *testing.T) {
	in := []byte(`{"systemInstruction":{"parts":[{"text":"   "},{"text":"real"}]}}`)

	out, err := NormalizeSystemInstruction(in, "systemInstruction")
	if err != nil {
		t.Fatalf("NormalizeSystemInstruction: %v", err)
	}

	parts := gjson.GetBytes(out, "systemInstruction.parts").Array()
	if len(parts) != 1 {
		t.Fatalf("expected one surviving part, got %d", len(parts))
	}
	if got := parts[0].Get("text").String(); got != "real" {
		t.Fatalf("text = %q, want %q", got, "real")
	}
}

func TestNormalizeSystemInstructionKeepsSurroundingWhitespaceOfSurvivingParts(t *testing.T) {
	in := []byte(`{"systemInstruction":{"parts":[{"text":" be "},{"text":" concise "}]}}`)

	out, err := NormalizeSystemInstruction(in, "systemInstruction")
	if err != nil {
		t.Fatalf("NormalizeSystemInstruction: %v", err)
	}

	got := gjson.GetBytes(out, "systemInstruction.parts.0.text").String()
	want := " be \n\n concise "
	if got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestNormalizeSystemInstructionAllBlankDeletesField(t *testing.T) {
	in := []byte(`{"systemInstruction":{"parts":[{"text":"  "},{"text":""}]},"contents":[]}`)

	out, err := NormalizeSystemInstruction(in, "systemInstruction")
	if err != nil {
		t.Fatalf("NormalizeSystemInstruction: %v", err)
	}
	if gjson.GetBytes(out, "systemInstruction").Exists() {
		t.Fatalf("expected systemInstruction to be absent, got %s", out)
	}
}
