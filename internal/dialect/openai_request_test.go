package dialect

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestOpenAIRequestToGeminiSystemAndUserMessages(t *testing.T) {
	in := []byte(`{
		"model": "gpt-4o",
		"temperature": 0.5,
		"messages": [
			{"role": "system", "content": "be concise"},
			{"role": "user", "content": "hello"}
		]
	}`)

	out := OpenAIRequestToGemini("gemini-2.5-pro", in)

	if got := gjson.GetBytes(out, "systemInstruction.parts.0.text").String(); got != "be concise" {
		t.Fatalf("systemInstruction text = %q", got)
	}
	contents := gjson.GetBytes(out, "contents").Array()
	if len(contents) != 1 {
		t.Fatalf("expected 1 content entry, got %d", len(contents))
	}
	if got := contents[0].Get("parts.0.text").String(); got != "hello" {
		t.Fatalf("user text = %q", got)
	}
	if got := gjson.GetBytes(out, "generationConfig.temperature").Float(); got != 0.5 {
		t.Fatalf("temperature = %v", got)
	}
}

func TestOpenAIRequestToGeminiToolCallRoundtrip(t *testing.T) {
	in := []byte(`{
		"messages": [
			{"role": "user", "content": "what's the weather"},
			{"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"NYC\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "{\"tempF\":72}"}
		]
	}`)

	out := OpenAIRequestToGemini("gemini-2.5-pro", in)
	contents := gjson.GetBytes(out, "contents").Array()
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d: %s", len(contents), out)
	}
	if got := contents[1].Get("parts.0.functionCall.name").String(); got != "get_weather" {
		t.Fatalf("functionCall name = %q", got)
	}
	if got := contents[2].Get("parts.0.functionResponse.name").String(); got != "get_weather" {
		t.Fatalf("functionResponse name = %q", got)
	}
}

func TestOpenAIRequestToGeminiImageURL(t *testing.T) {
	in := []byte(`{"messages":[{"role":"user","content":[
		{"type":"text","text":"describe"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,abc123"}}
	]}]}`)

	out := OpenAIRequestToGemini("gemini-2.5-pro", in)
	parts := gjson.GetBytes(out, "contents.0.parts").Array()
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if got := parts[1].Get("inlineData.mimeType").String(); got != "image/png" {
		t.Fatalf("mimeType = %q", got)
	}
	if got := parts[1].Get("inlineData.data").String(); got != "abc123" {
		t.Fatalf("data = %q", got)
	}
}

func TestOpenAIRequestToGeminiFunctionTools(t *testing.T) {
	in := []byte(`{"messages":[{"role":"user","content":"hi"}],"tools":[
		{"type":"function","function":{"name":"lookup","parameters":{"type":"object","properties":{}}}}
	]}`)

	out := OpenAIRequestToGemini("gemini-2.5-pro", in)
	if got := gjson.GetBytes(out, "tools.0.functionDeclarations.0.name").String(); got != "lookup" {
		t.Fatalf("function name = %q", got)
	}
	if !gjson.GetBytes(out, "tools.0.functionDeclarations.0.parametersJsonSchema").Exists() {
		t.Fatalf("expected parametersJsonSchema to be set")
	}
}
