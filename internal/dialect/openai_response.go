package dialect

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GeminiResponseToOpenAI converts a single, complete Gemini generateContent
// response body into an OpenAI Chat Completions response body.
func GeminiResponseToOpenAI(modelName string, rawJSON []byte) []byte {
	out := []byte(`{"object":"chat.completion","choices":[]}`)

	id := gjson.GetBytes(rawJSON, "responseId").String()
	if id == "" {
		id = "pollux-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	out, _ = sjson.SetBytes(out, "id", id)
	out, _ = sjson.SetBytes(out, "created", createdUnix(rawJSON))

	model := gjson.GetBytes(rawJSON, "modelVersion").String()
	if model == "" {
		model = modelName
	}
	out, _ = sjson.SetBytes(out, "model", model)

	candidates := gjson.GetBytes(rawJSON, "candidates")
	candidates.ForEach(func(_, candidate gjson.Result) bool {
		out, _ = sjson.SetRawBytes(out, "choices.-1", choiceFromCandidate(candidate))
		return true
	})

	if usage := gjson.GetBytes(rawJSON, "usageMetadata"); usage.Exists() {
		out = applyUsage(out, usage)
	}
	return out
}

func createdUnix(rawJSON []byte) int64 {
	ct := gjson.GetBytes(rawJSON, "createTime")
	if !ct.Exists() {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, ct.String())
	if err != nil {
		return 0
	}
	return t.Unix()
}

func choiceFromCandidate(candidate gjson.Result) []byte {
	choice := []byte(`{"index":0,"message":{"role":"assistant","content":null},"finish_reason":null}`)
	choice, _ = sjson.SetBytes(choice, "index", candidate.Get("index").Int())

	var text string
	var toolCalls []byte = []byte(`[]`)
	hasToolCalls := false

	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if part.Get("thought").Bool() {
			return true
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			call := []byte(`{"type":"function","function":{}}`)
			call, _ = sjson.SetBytes(call, "id", "call_"+strconv.FormatInt(time.Now().UnixNano(), 36))
			call, _ = sjson.SetBytes(call, "function.name", fc.Get("name").String())
			call, _ = sjson.SetBytes(call, "function.arguments", fc.Get("args").Raw)
			toolCalls, _ = sjson.SetRawBytes(toolCalls, "-1", call)
			hasToolCalls = true
			return true
		}
		if t := part.Get("text"); t.Exists() {
			text += t.String()
		}
		return true
	})

	if text != "" {
		choice, _ = sjson.SetBytes(choice, "message.content", text)
	}
	if hasToolCalls {
		choice, _ = sjson.SetRawBytes(choice, "message.tool_calls", toolCalls)
	}

	if fr := candidate.Get("finishReason"); fr.Exists() {
		choice, _ = sjson.SetBytes(choice, "finish_reason", mapFinishReason(fr.String()))
	}
	return choice
}

func mapFinishReason(geminiReason string) string {
	switch geminiReason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return "stop"
	}
}

func applyUsage(out []byte, usage gjson.Result) []byte {
	cached := usage.Get("cachedContentTokenCount").Int()
	prompt := usage.Get("promptTokenCount").Int() - cached
	completion := usage.Get("candidatesTokenCount").Int()
	thoughts := usage.Get("thoughtsTokenCount").Int()

	out, _ = sjson.SetBytes(out, "usage.prompt_tokens", prompt+thoughts)
	out, _ = sjson.SetBytes(out, "usage.completion_tokens", completion)
	out, _ = sjson.SetBytes(out, "usage.total_tokens", usage.Get("totalTokenCount").Int())
	if thoughts > 0 {
		out, _ = sjson.SetBytes(out, "usage.completion_tokens_details.reasoning_tokens", thoughts)
	}
	if cached > 0 {
		out, _ = sjson.SetBytes(out, "usage.prompt_tokens_details.cached_tokens", cached)
	}
	return out
}
