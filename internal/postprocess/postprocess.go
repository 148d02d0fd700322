// Package postprocess implements component H: sniffing thought signatures
// out of upstream responses and adapting them to the dialect the inbound
// client expects, in both buffered and SSE-streaming modes.
package postprocess

import (
	"bufio"
	"bytes"
	"io"

	"github.com/gin-contrib/sse"
	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/dialect"
	"github.com/pollux-gateway/pollux/internal/preprocess"
	"github.com/pollux-gateway/pollux/internal/signature"
)

// streamScannerBuffer bounds a single SSE line; upstream chunks carrying a
// full turn of text can run large, so this is generous rather than minimal.
const streamScannerBuffer = 8 * 1024 * 1024

// Postprocessor implements component H.
type Postprocessor struct {
	cache *signature.Cache
}

// New builds a Postprocessor backed by the given provider signature cache.
func New(cache *signature.Cache) *Postprocessor {
	return &Postprocessor{cache: cache}
}

// Unary buffers a complete upstream response, sniffs every emitted part for
// real thought signatures, translates dialect if the inbound client is not
// native Gemini, and returns the bytes to write back.
func (pp *Postprocessor) Unary(d preprocess.Dialect, modelName string, rawJSON []byte) []byte {
	sniffAllParts(rawJSON, pp.cache)
	if d == preprocess.DialectOpenAIChat {
		return dialect.GeminiResponseToOpenAI(modelName, rawJSON)
	}
	return rawJSON
}

// StreamGemini forwards a Gemini SSE body line-by-line to w, unmodified
// except for signature sniffing, preserving upstream back-pressure. flush
// is called after every written line; it may be a no-op.
func (pp *Postprocessor) StreamGemini(w io.Writer, flush func(), upstream io.Reader) error {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(nil, streamScannerBuffer)
	for scanner.Scan() {
		line := scanner.Bytes()
		if payload := ssePayload(line); len(payload) > 0 {
			sniffChunk(payload, pp.cache)
		}
		if _, err := w.Write(append(append([]byte{}, line...), '\n')); err != nil {
			return err
		}
		flush()
	}
	return scanner.Err()
}

// StreamOpenAI translates each Gemini SSE chunk into an OpenAI Chat
// Completions streaming chunk and writes it as an SSE event via
// github.com/gin-contrib/sse, sniffing signatures along the way. It emits a
// final "data: [DONE]" event once the upstream stream ends.
func (pp *Postprocessor) StreamOpenAI(w io.Writer, flush func(), modelName string, upstream io.Reader) error {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(nil, streamScannerBuffer)
	for scanner.Scan() {
		line := scanner.Bytes()
		payload := ssePayload(line)
		if len(payload) == 0 {
			continue
		}
		sniffChunk(payload, pp.cache)
		translated := dialect.GeminiResponseToOpenAI(modelName, payload)
		if err := sse.Encode(w, sse.Event{Data: translated}); err != nil {
			return err
		}
		flush()
		if isTerminalChunk(payload) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := sse.Encode(w, sse.Event{Data: "[DONE]"}); err != nil {
		return err
	}
	flush()
	return nil
}

// ssePayload extracts the JSON payload from an SSE "data: ..." line, or nil
// for blank lines, comments, and other framing.
func ssePayload(line []byte) []byte {
	trimmed := bytes.TrimSpace(line)
	if !bytes.HasPrefix(trimmed, []byte("data:")) {
		return nil
	}
	payload := bytes.TrimSpace(trimmed[len("data:"):])
	if len(payload) == 0 || bytes.Equal(payload, []byte("[DONE]")) || !gjson.ValidBytes(payload) {
		return nil
	}
	return payload
}

// isTerminalChunk reports whether chunk carries a finishReason, marking the
// end of a conversation turn.
func isTerminalChunk(chunk []byte) bool {
	return gjson.GetBytes(chunk, "candidates.0.finishReason").Exists()
}

// sniffChunk inspects only the first candidate's first part per chunk, so
// the sniffer stays O(1) and never risks delaying the forward path.
func sniffChunk(chunk []byte, cache *signature.Cache) {
	part := gjson.GetBytes(chunk, "candidates.0.content.parts.0")
	if part.Exists() {
		signature.SniffInbound(part, cache)
	}
}

// sniffAllParts walks every candidate/part of a complete unary response.
// Unlike the streaming sniffer, a buffered response has no back-pressure
// concern, so every part that carries a real signature is cached.
func sniffAllParts(rawJSON []byte, cache *signature.Cache) {
	gjson.GetBytes(rawJSON, "candidates").ForEach(func(_, candidate gjson.Result) bool {
		candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
			signature.SniffInbound(part, cache)
			return true
		})
		return true
	})
}
