package signature

// Policy implements the provider-specific miss behavior. Both providers
// substitute the fallback signature on a
// functionCall miss; they differ only on what happens to a thought part
// whose signature cannot be reconstructed.
type Policy interface {
	// Name identifies the policy for logging.
	Name() string
	// DropThoughtOnMiss reports whether a thought part with no known
	// signature should be removed from the outbound request entirely,
	// rather than patched with the fallback sentinel.
	DropThoughtOnMiss() bool
}

// geminiCLIPolicy keeps the part and substitutes the fallback signature on
// any miss (thought or functionCall).
type geminiCLIPolicy struct{}

func (geminiCLIPolicy) Name() string             { return "gemini-cli" }
func (geminiCLIPolicy) DropThoughtOnMiss() bool   { return false }

// antigravityPolicy drops unresolvable thought parts outright because the
// upstream rejects unrecognized thought signatures harder than Gemini-CLI
// does; functionCall misses still get the fallback sentinel.
type antigravityPolicy struct{}

func (antigravityPolicy) Name() string           { return "antigravity" }
func (antigravityPolicy) DropThoughtOnMiss() bool { return true }

// GeminiCLIPolicy is the shared Gemini-CLI provider policy instance.
var GeminiCLIPolicy Policy = geminiCLIPolicy{}

// AntigravityPolicy is the shared Antigravity provider policy instance.
var AntigravityPolicy Policy = antigravityPolicy{}

// PolicyFor resolves the policy by provider key. Providers with no special
// handling (e.g. Codex, which does not carry Gemini-style thought
// signatures) get a policy that behaves like Gemini-CLI's, since it is the
// more conservative (non-destructive) of the two.
func PolicyFor(provider string) Policy {
	switch provider {
	case "antigravity":
		return AntigravityPolicy
	default:
		return GeminiCLIPolicy
	}
}
