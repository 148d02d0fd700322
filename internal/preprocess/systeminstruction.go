package preprocess

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// NormalizeSystemInstruction rewrites request.systemInstruction at path in
// rawJSON to a single merged text part with no role, dropping any
// non-text parts (inlineData, etc). Blank-after-trim text parts are
// filtered out before joining the rest with "\n\n"; if nothing remains the
// field is deleted entirely.
func NormalizeSystemInstruction(rawJSON []byte, path string) ([]byte, error) {
	si := gjson.GetBytes(rawJSON, path)
	if !si.Exists() {
		return rawJSON, nil
	}

	var texts []string
	si.Get("parts").ForEach(func(_, part gjson.Result) bool {
		text := part.Get("text")
		if text.Exists() && strings.TrimSpace(text.String()) != "" {
			texts = append(texts, text.String())
		}
		return true
	})

	if len(texts) == 0 {
		return sjson.DeleteBytes(rawJSON, path)
	}

	merged := strings.Join(texts, "\n\n")
	replacement := map[string]any{"parts": []any{map[string]any{"text": merged}}}
	return sjson.SetBytes(rawJSON, path, replacement)
}
