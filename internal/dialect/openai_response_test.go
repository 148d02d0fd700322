package dialect

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestGeminiResponseToOpenAITextReply(t *testing.T) {
	in := []byte(`{
		"responseId": "resp_1",
		"modelVersion": "gemini-2.5-pro",
		"candidates": [{"index":0,"content":{"role":"model","parts":[{"text":"hi there"}]},"finishReason":"STOP"}],
		"usageMetadata": {"promptTokenCount":10,"candidatesTokenCount":3,"totalTokenCount":13}
	}`)

	out := GeminiResponseToOpenAI("gemini-2.5-pro", in)

	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "hi there" {
		t.Fatalf("content = %q", got)
	}
	if got := gjson.GetBytes(out, "choices.0.finish_reason").String(); got != "stop" {
		t.Fatalf("finish_reason = %q", got)
	}
	if got := gjson.GetBytes(out, "usage.total_tokens").Int(); got != 13 {
		t.Fatalf("total_tokens = %d", got)
	}
}

func TestGeminiResponseToOpenAIFunctionCall(t *testing.T) {
	in := []byte(`{
		"candidates": [{"index":0,"content":{"role":"model","parts":[
			{"functionCall":{"name":"get_weather","args":{"city":"NYC"}}}
		]},"finishReason":"STOP"}]
	}`)

	out := GeminiResponseToOpenAI("gemini-2.5-pro", in)
	if got := gjson.GetBytes(out, "choices.0.message.tool_calls.0.function.name").String(); got != "get_weather" {
		t.Fatalf("tool call name = %q", got)
	}
}

func TestGeminiResponseToOpenAISkipsThoughtParts(t *testing.T) {
	in := []byte(`{
		"candidates": [{"index":0,"content":{"role":"model","parts":[
			{"thought":true,"text":"internal reasoning"},
			{"text":"final answer"}
		]},"finishReason":"STOP"}]
	}`)

	out := GeminiResponseToOpenAI("gemini-2.5-pro", in)
	if got := gjson.GetBytes(out, "choices.0.message.content").String(); got != "final answer" {
		t.Fatalf("content = %q", got)
	}
}
