package postprocess

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/preprocess"
	"github.com/pollux-gateway/pollux/internal/signature"
)

func TestUnarySniffsAndPassesThroughGeminiNative(t *testing.T) {
	pp := New(signature.NewCache(0, 0))
	in := []byte(`{"candidates":[{"content":{"parts":[{"thought":true,"text":"t","thoughtSignature":"sig_0123456789"}]}}]}`)

	out := pp.Unary(preprocess.DialectGeminiNative, "gemini-2.5-pro", in)
	if !bytes.Equal(out, in) {
		t.Fatalf("expected passthrough for native dialect, got %s", out)
	}

	fp, ok := signature.FingerprintText("t")
	if !ok {
		t.Fatalf("expected a fingerprint for non-blank text")
	}
	sig, hit := pp.cache.Get(fp)
	if !hit || sig != "sig_0123456789" {
		t.Fatalf("expected signature to be cached, got hit=%v sig=%q", hit, sig)
	}
}

func TestUnaryTranslatesToOpenAIDialect(t *testing.T) {
	pp := New(signature.NewCache(0, 0))
	in := []byte(`{"candidates":[{"index":0,"content":{"parts":[{"text":"hi"}]},"finishReason":"STOP"}]}`)

	out := pp.Unary(preprocess.DialectOpenAIChat, "gemini-2.5-pro", in)
	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "hi" {
		t.Fatalf("content = %q", got)
	}
}

func TestStreamGeminiForwardsLinesUnmodified(t *testing.T) {
	pp := New(signature.NewCache(0, 0))
	upstream := "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"hi\"}]}}]}\n\n"
	var out bytes.Buffer

	if err := pp.StreamGemini(&out, func() {}, strings.NewReader(upstream)); err != nil {
		t.Fatalf("StreamGemini: %v", err)
	}
	if !strings.Contains(out.String(), `"text":"hi"`) {
		t.Fatalf("expected forwarded payload, got %q", out.String())
	}
}

func TestStreamGeminiSniffsFirstPartOnly(t *testing.T) {
	pp := New(signature.NewCache(0, 0))
	upstream := "data: {\"candidates\":[{\"content\":{\"parts\":[{\"thought\":true,\"text\":\"p\",\"thoughtSignature\":\"sig_0123456789\"}]}}]}\n\n"
	var out bytes.Buffer

	if err := pp.StreamGemini(&out, func() {}, strings.NewReader(upstream)); err != nil {
		t.Fatalf("StreamGemini: %v", err)
	}
	fp, _ := signature.FingerprintText("p")
	if sig, hit := pp.cache.Get(fp); !hit || sig != "sig_0123456789" {
		t.Fatalf("expected sniffed signature, got hit=%v sig=%q", hit, sig)
	}
}

func TestStreamOpenAITranslatesAndTerminatesWithDone(t *testing.T) {
	pp := New(signature.NewCache(0, 0))
	upstream := "data: {\"candidates\":[{\"index\":0,\"content\":{\"parts\":[{\"text\":\"hi\"}]},\"finishReason\":\"STOP\"}]}\n\n"
	var out bytes.Buffer

	if err := pp.StreamOpenAI(&out, func() {}, "gemini-2.5-pro", strings.NewReader(upstream)); err != nil {
		t.Fatalf("StreamOpenAI: %v", err)
	}
	rendered := out.String()
	if !strings.Contains(rendered, `"content":"hi"`) {
		t.Fatalf("expected translated content in stream, got %q", rendered)
	}
	if !strings.Contains(rendered, "[DONE]") {
		t.Fatalf("expected a terminal [DONE] event, got %q", rendered)
	}
}
