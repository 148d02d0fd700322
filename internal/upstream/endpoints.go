package upstream

// Default upstream hosts for the three supported providers. geminicli and
// antigravity share Google's Cloud Code backend; codex talks to OpenAI's
// Codex backend instead.
const (
	GeminiCLIBaseURL   = "https://cloudcode-pa.googleapis.com"
	AntigravityBaseURL = "https://cloudcode-pa.googleapis.com"
	CodexBaseURL       = "https://chatgpt.com/backend-api/codex"
)

// NewEndpointFunc builds an orchestrator.EndpointFunc from a provider ->
// base URL map. model and stream are ignored for codex, which exposes a
// single conversation endpoint; geminicli/antigravity route on the
// method/alt suffix every other provider request carries.
func NewEndpointFunc(baseURLs map[string]string) func(provider, model string, stream bool) string {
	return func(provider, model string, stream bool) string {
		base := baseURLs[provider]
		if provider == "codex" {
			return base + "/responses"
		}
		if stream {
			return base + "/v1internal:streamGenerateContent?alt=sse"
		}
		return base + "/v1internal:generateContent"
	}
}

// DefaultBaseURLs returns the built-in base URL for each supported
// provider, a starting point for providers.<name>.proxy overrides.
func DefaultBaseURLs() map[string]string {
	return map[string]string{
		"geminicli":   GeminiCLIBaseURL,
		"antigravity": AntigravityBaseURL,
		"codex":       CodexBaseURL,
	}
}

