// Package dialect translates between the OpenAI Chat Completions wire
// format and Gemini's generateContent request/response shape, using gjson
// for reads and sjson for writes so the translation never round-trips
// through a fully-typed struct.
package dialect

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FunctionCallThoughtSignature is stamped on synthesized functionCall parts
// so the signature engine treats them as already-resolved rather than a
// miss requiring a policy decision.
const FunctionCallThoughtSignature = "skip_thought_signature_validator"

// OpenAIRequestToGemini converts an OpenAI Chat Completions request body
// into a Gemini generateContent request body for modelName.
func OpenAIRequestToGemini(modelName string, rawJSON []byte) []byte {
	out := []byte(`{"contents":[]}`)

	if t := gjson.GetBytes(rawJSON, "temperature"); t.Exists() && t.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.temperature", t.Num)
	}
	if t := gjson.GetBytes(rawJSON, "top_p"); t.Exists() && t.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.topP", t.Num)
	}
	if t := gjson.GetBytes(rawJSON, "max_tokens"); t.Exists() && t.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.maxOutputTokens", t.Int())
	}
	if n := gjson.GetBytes(rawJSON, "n"); n.Exists() && n.Int() > 1 {
		out, _ = sjson.SetBytes(out, "generationConfig.candidateCount", n.Int())
	}

	messages := gjson.GetBytes(rawJSON, "messages")
	if messages.IsArray() {
		out = convertMessages(out, messages.Array())
	}

	if tools := gjson.GetBytes(rawJSON, "tools"); tools.IsArray() && len(tools.Array()) > 0 {
		out = convertTools(out, tools.Array())
	}

	_ = modelName
	return out
}

// tool_call_id -> function name, recorded from assistant tool_calls so a
// later "tool" message can be rendered as a functionResponse with a name.
func toolCallNames(messages []gjson.Result) map[string]string {
	names := map[string]string{}
	for _, m := range messages {
		if m.Get("role").String() != "assistant" {
			continue
		}
		m.Get("tool_calls").ForEach(func(_, tc gjson.Result) bool {
			if tc.Get("type").String() == "function" {
				if id := tc.Get("id").String(); id != "" {
					names[id] = tc.Get("function.name").String()
				}
			}
			return true
		})
	}
	return names
}

func convertMessages(out []byte, messages []gjson.Result) []byte {
	names := toolCallNames(messages)

	for _, m := range messages {
		role := m.Get("role").String()
		content := m.Get("content")

		switch role {
		case "system", "developer":
			out = appendSystemInstruction(out, content)
		case "user":
			if node := userContentNode(content); node != nil {
				out, _ = sjson.SetRawBytes(out, "contents.-1", node)
			}
		case "tool":
			if node := toolResponseNode(m, content, names); node != nil {
				out, _ = sjson.SetRawBytes(out, "contents.-1", node)
			}
		case "assistant":
			out = appendAssistantContent(out, m, content)
		}
	}
	return out
}

// toolResponseNode renders an OpenAI "tool" message as a single-part
// functionResponse content, looking up the function name by the
// tool_calls id the preceding assistant message assigned it.
func toolResponseNode(m, content gjson.Result, toolNames map[string]string) []byte {
	id := m.Get("tool_call_id").String()
	name := toolNames[id]
	if name == "" {
		name = id
	}
	node := []byte(`{"role":"user","parts":[{"functionResponse":{}}]}`)
	node, _ = sjson.SetBytes(node, "parts.0.functionResponse.name", name)
	result := content.Raw
	if content.Type == gjson.String {
		result = `{"result":` + strconv.Quote(content.String()) + `}`
	} else if strings.TrimSpace(result) == "" {
		result = `{}`
	}
	node, _ = sjson.SetRawBytes(node, "parts.0.functionResponse.response", []byte(result))
	return node
}

func appendSystemInstruction(out []byte, content gjson.Result) []byte {
	var texts []string
	switch {
	case content.Type == gjson.String:
		texts = append(texts, content.String())
	case content.IsArray():
		for _, item := range content.Array() {
			if item.Get("type").String() == "text" {
				texts = append(texts, item.Get("text").String())
			}
		}
	}
	for _, text := range texts {
		idx := gjson.GetBytes(out, "systemInstruction.parts").Array()
		out, _ = sjson.SetBytes(out, "systemInstruction.parts."+strconv.Itoa(len(idx))+".text", text)
	}
	return out
}

func userContentNode(content gjson.Result) []byte {
	node := []byte(`{"role":"user","parts":[]}`)
	p := 0
	switch {
	case content.Type == gjson.String:
		node, _ = sjson.SetBytes(node, "parts.0.text", content.String())
	case content.IsArray():
		for _, item := range content.Array() {
			switch item.Get("type").String() {
			case "text":
				if text := item.Get("text").String(); text != "" {
					node, _ = sjson.SetBytes(node, "parts."+strconv.Itoa(p)+".text", text)
					p++
				}
			case "image_url":
				if mime, data, ok := splitDataURL(item.Get("image_url.url").String()); ok {
					node, _ = sjson.SetBytes(node, "parts."+strconv.Itoa(p)+".inlineData.mimeType", mime)
					node, _ = sjson.SetBytes(node, "parts."+strconv.Itoa(p)+".inlineData.data", data)
					p++
				}
			}
		}
	}
	if p == 0 && content.Type != gjson.String {
		return nil
	}
	return node
}

func appendAssistantContent(out []byte, m, content gjson.Result) []byte {
	node := []byte(`{"role":"model","parts":[]}`)
	p := 0
	switch {
	case content.Type == gjson.String && content.String() != "":
		node, _ = sjson.SetBytes(node, "parts.0.text", content.String())
		p++
	case content.IsArray():
		for _, item := range content.Array() {
			if item.Get("type").String() == "text" {
				if text := item.Get("text").String(); text != "" {
					node, _ = sjson.SetBytes(node, "parts."+strconv.Itoa(p)+".text", text)
					p++
				}
			}
		}
	}

	tcs := m.Get("tool_calls")
	if tcs.IsArray() {
		tcs.ForEach(func(_, tc gjson.Result) bool {
			if tc.Get("type").String() != "function" {
				return true
			}
			idx := strconv.Itoa(p)
			node, _ = sjson.SetBytes(node, "parts."+idx+".functionCall.name", tc.Get("function.name").String())
			node, _ = sjson.SetRawBytes(node, "parts."+idx+".functionCall.args", []byte(orEmptyObject(tc.Get("function.arguments").String())))
			node, _ = sjson.SetBytes(node, "parts."+idx+".thoughtSignature", FunctionCallThoughtSignature)
			p++
			return true
		})
	}
	if p > 0 {
		out, _ = sjson.SetRawBytes(out, "contents.-1", node)
	}
	return out
}

func orEmptyObject(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	return s
}

func splitDataURL(url string) (mime, data string, ok bool) {
	const prefix = "data:"
	if !strings.HasPrefix(url, prefix) {
		return "", "", false
	}
	rest := url[len(prefix):]
	pieces := strings.SplitN(rest, ";base64,", 2)
	if len(pieces) != 2 {
		return "", "", false
	}
	return pieces[0], pieces[1], true
}

func convertTools(out []byte, tools []gjson.Result) []byte {
	var decls []byte = []byte(`[]`)
	has := false
	for _, t := range tools {
		if t.Get("type").String() != "function" {
			continue
		}
		fn := t.Get("function")
		if !fn.Exists() {
			continue
		}
		fnRaw := fn.Raw
		if fn.Get("parameters").Exists() {
			if renamed, err := sjson.SetRaw(fn.Raw, "parametersJsonSchema", fn.Get("parameters").Raw); err == nil {
				fnRaw, _ = sjson.Delete(renamed, "parameters")
			}
		} else {
			fnRaw, _ = sjson.Set(fnRaw, "parametersJsonSchema.type", "object")
		}
		fnRaw, _ = sjson.Delete(fnRaw, "strict")
		decls, _ = sjson.SetRawBytes(decls, "-1", []byte(fnRaw))
		has = true
	}
	if has {
		toolsNode := []byte(`[{}]`)
		toolsNode, _ = sjson.SetRawBytes(toolsNode, "0.functionDeclarations", decls)
		out, _ = sjson.SetRawBytes(out, "tools", toolsNode)
	}
	return out
}
