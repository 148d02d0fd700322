package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/perr"
	"github.com/pollux-gateway/pollux/internal/preprocess"
)

// chatCompletions handles the OpenAI-shaped /v1/chat/completions endpoint,
// translating to and from Gemini's generateContent dialect. A provider path
// param scopes the request explicitly (/{provider}/v1/chat/completions);
// the bare /v1/chat/completions path falls back to Router.defaultProvider.
func (rt *Router) chatCompletions(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		provider = rt.defaultProvider
	}
	runtime, ok := rt.runtime(provider)
	if !ok {
		writeErr(c, perr.Validation("unknown provider %q", provider))
		return
	}

	rawBody, err := c.GetRawData()
	if err != nil {
		writeErr(c, perr.Validation("failed to read request body"))
		return
	}
	if !gjson.ValidBytes(rawBody) {
		writeErr(c, perr.Validation("request body is not valid JSON"))
		return
	}

	model := gjson.GetBytes(rawBody, "model").String()
	stream := gjson.GetBytes(rawBody, "stream").Bool()

	rt.dispatch(c, runtime, preprocess.DialectOpenAIChat, provider, model, stream, rawBody)
}
