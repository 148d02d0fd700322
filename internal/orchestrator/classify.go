package orchestrator

import (
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/credpool"
)

// classification is the orchestrator-internal verdict for one upstream
// attempt: the credpool.Outcome to report back to the pool, plus enough
// detail to build the client-facing error if no retries remain.
type classification struct {
	outcome  credpool.Outcome
	resetAt  time.Time
	modelBit uint64
	reason   string
	status   int
}

// classify maps an upstream HTTP status and response body to the outcome
// the credential pool and retry loop should act on.
func classify(status int, body []byte, modelBit uint64) classification {
	switch {
	case status == http.StatusOK || (status >= 200 && status < 300):
		return classification{outcome: credpool.OutcomeSuccess, status: status}

	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && looksOAuthShaped(body):
		return classification{outcome: credpool.OutcomeUnauthorized, status: status, reason: bodySnippet(body)}

	case status == http.StatusTooManyRequests || hasQuotaSchema(body):
		return classification{
			outcome:  credpool.OutcomeQuotaExhausted,
			resetAt:  quotaResetAt(body),
			status:   status,
			reason:   bodySnippet(body),
			modelBit: modelBit,
		}

	case unsupportedModel(body):
		return classification{outcome: credpool.OutcomeFatalFailureUnsupportedModel, modelBit: modelBit, status: status, reason: bodySnippet(body)}

	case status >= 500:
		return classification{outcome: credpool.OutcomeRetryableFailure, status: status, reason: bodySnippet(body)}

	default:
		return classification{outcome: credpool.OutcomeFatalFailureOther, status: status, reason: bodySnippet(body)}
	}
}

// classifyNetworkError handles a transport-level failure (connect/read),
// always retryable.
func classifyNetworkError(err error) classification {
	return classification{outcome: credpool.OutcomeRetryableFailure, reason: err.Error()}
}

// looksOAuthShaped reports whether a 401/403 body carries the OAuth-style
// error envelope rather than an ordinary upstream error.
func looksOAuthShaped(body []byte) bool {
	status := gjson.GetBytes(body, "error.status").String()
	return status == "UNAUTHENTICATED" || status == "PERMISSION_DENIED" ||
		gjson.GetBytes(body, "error.code").Int() == 401
}

// hasQuotaSchema reports whether the body carries the upstream quota
// schema (resets_at / resets_in_seconds), independent of HTTP status.
func hasQuotaSchema(body []byte) bool {
	return gjson.GetBytes(body, "error.resets_at").Exists() || gjson.GetBytes(body, "error.resets_in_seconds").Exists()
}

func quotaResetAt(body []byte) time.Time {
	if at := gjson.GetBytes(body, "error.resets_at"); at.Exists() {
		if t, err := time.Parse(time.RFC3339, at.String()); err == nil {
			return t
		}
	}
	if secs := gjson.GetBytes(body, "error.resets_in_seconds"); secs.Exists() {
		return time.Now().Add(time.Duration(secs.Int()) * time.Second)
	}
	return time.Now().Add(time.Minute)
}

// unsupportedModel reports whether the body's detail/message names an
// unsupported model, covering both the Gemini-shaped and Codex-shaped
// error bodies.
func unsupportedModel(body []byte) bool {
	detail := gjson.GetBytes(body, "error.detail").String()
	message := gjson.GetBytes(body, "error.message").String()
	codexMessage := gjson.GetBytes(body, "detail").String()
	return containsModelNotSupported(detail) || containsModelNotSupported(message) || containsModelNotSupported(codexMessage)
}

func containsModelNotSupported(s string) bool {
	return strings.Contains(strings.ToLower(s), "model is not supported")
}

func bodySnippet(body []byte) string {
	const max = 300
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
