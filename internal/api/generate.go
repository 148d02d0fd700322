package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pollux-gateway/pollux/internal/logging"
	"github.com/pollux-gateway/pollux/internal/orchestrator"
	"github.com/pollux-gateway/pollux/internal/perr"
	"github.com/pollux-gateway/pollux/internal/preprocess"
)

// generateContent dispatches POST /{provider}/v1beta/models/{model}:{method},
// where method is either "generateContent" or "streamGenerateContent".
func (rt *Router) generateContent(c *gin.Context) {
	runtime, ok := rt.runtime(c.Param("provider"))
	if !ok {
		writeErr(c, perr.Validation("unknown provider %q", c.Param("provider")))
		return
	}

	model, method, ok := splitAction(c.Param("action"))
	if !ok {
		writeErr(c, perr.Validation("%s not found", c.Request.URL.Path))
		return
	}

	var stream bool
	switch method {
	case "generateContent":
		stream = false
	case "streamGenerateContent":
		stream = true
	default:
		writeErr(c, perr.Validation("%s not found", c.Request.URL.Path))
		return
	}

	rawBody, err := c.GetRawData()
	if err != nil {
		writeErr(c, perr.Validation("failed to read request body"))
		return
	}

	rt.dispatch(c, runtime, preprocess.DialectGeminiNative, runtime.Name, model, stream, rawBody)
}

// splitAction splits "{model}:{method}" on the final colon.
func splitAction(action string) (model, method string, ok bool) {
	i := strings.LastIndex(action, ":")
	if i < 0 {
		return "", "", false
	}
	return action[:i], action[i+1:], true
}

// dispatch runs the shared preprocess -> orchestrate -> postprocess pipeline
// for both native-Gemini and OpenAI-dialect callers.
func (rt *Router) dispatch(c *gin.Context, runtime *ProviderRuntime, d preprocess.Dialect, provider, model string, stream bool, rawBody []byte) {
	prepared, err := runtime.Preprocessor.Prepare(d, provider, model, stream, rawBody)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), orchestrator.RetryDeadline(stream))
	defer cancel()

	resp, err := runtime.Orchestrator.Execute(ctx, provider, model, stream, prepared.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	if !stream {
		c.Data(http.StatusOK, "application/json", runtime.Postprocessor.Unary(d, model, resp.Body))
		return
	}
	defer resp.Stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	var streamErr error
	if d == preprocess.DialectOpenAIChat {
		streamErr = runtime.Postprocessor.StreamOpenAI(c.Writer, flush, model, resp.Stream)
	} else {
		streamErr = runtime.Postprocessor.StreamGemini(c.Writer, flush, resp.Stream)
	}
	if streamErr != nil {
		// Headers are already committed; nothing left to do but log.
		logging.FromContext(ctx).WithError(streamErr).WithField("provider", provider).Warn("api: stream forwarding ended early")
	}
}
