package upstream

import "testing"

func TestNewEndpointFuncRoutesByProviderAndStream(t *testing.T) {
	endpoint := NewEndpointFunc(DefaultBaseURLs())

	cases := []struct {
		provider string
		stream   bool
		want     string
	}{
		{"geminicli", false, "https://cloudcode-pa.googleapis.com/v1internal:generateContent"},
		{"geminicli", true, "https://cloudcode-pa.googleapis.com/v1internal:streamGenerateContent?alt=sse"},
		{"antigravity", true, "https://cloudcode-pa.googleapis.com/v1internal:streamGenerateContent?alt=sse"},
		{"codex", false, "https://chatgpt.com/backend-api/codex/responses"},
		{"codex", true, "https://chatgpt.com/backend-api/codex/responses"},
	}
	for _, c := range cases {
		if got := endpoint(c.provider, "gemini-2.5-pro", c.stream); got != c.want {
			t.Fatalf("endpoint(%s, stream=%v) = %q, want %q", c.provider, c.stream, got, c.want)
		}
	}
}

func TestNewEndpointFuncHonorsOverriddenBaseURL(t *testing.T) {
	endpoint := NewEndpointFunc(map[string]string{"geminicli": "https://proxy.internal"})
	want := "https://proxy.internal/v1internal:generateContent"
	if got := endpoint("geminicli", "gemini-2.5-pro", false); got != want {
		t.Fatalf("endpoint = %q, want %q", got, want)
	}
}
