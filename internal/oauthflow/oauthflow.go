// Package oauthflow exchanges a credential's refresh token for a fresh
// access token against each provider's OAuth endpoint, and classifies the
// failures that can happen along the way.
package oauthflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pollux-gateway/pollux/internal/credstore"
)

// ErrorKind classifies an OAuth failure so callers can decide whether the
// credential is retryable, permanently dead, or merely needs to cool down.
type ErrorKind string

const (
	// KindFlow mirrors an upstream-reported OAuth flow error (an ineligible
	// account tier, a revoked grant): code/message come straight from the
	// provider's response body.
	KindFlow ErrorKind = "flow"
	// KindRequest is a transport-level failure (DNS, TLS, connection reset).
	KindRequest ErrorKind = "request"
	// KindUpstreamStatus is a non-2xx HTTP status with no parseable body.
	KindUpstreamStatus ErrorKind = "upstream_status"
	// KindServerResponse is a well-formed OAuth error response from the
	// token endpoint (e.g. {"error":"invalid_grant"}).
	KindServerResponse ErrorKind = "server_response"
	// KindParse is a malformed or unexpected token-endpoint response body.
	KindParse ErrorKind = "parse"
)

// Error is the oauthflow package's error taxonomy for OAuth-specific
// failures.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Status  int
	Body    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindFlow:
		return fmt.Sprintf("oauth flow error: %s: %s", e.Code, e.Message)
	case KindUpstreamStatus:
		return fmt.Sprintf("oauth upstream status %d", e.Status)
	case KindServerResponse:
		return fmt.Sprintf("oauth server response error: %s", e.Message)
	case KindParse:
		return fmt.Sprintf("oauth token endpoint parse error: %s", e.Message)
	default:
		return fmt.Sprintf("oauth request error: %s", e.Message)
	}
}

// Retryable reports whether the failure is transient, per the same
// classification the upstream token exchange uses: transport errors and
// 429/5xx statuses are retryable, a parse error is retryable (the endpoint
// may be mid-deploy), everything else is not.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRequest, KindParse:
		return true
	case KindUpstreamStatus:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

// clientConfig is the fixed OAuth client identity used for a provider's
// refresh-token exchange. These are the same public, installed-application
// client ids the CLI tools themselves use; there is no client secret
// rotation to manage.
type clientConfig struct {
	clientID     string
	clientSecret string
	scopes       []string
	endpoint     oauth2.Endpoint
}

var providerConfigs = map[string]clientConfig{
	"geminicli": {
		clientID:     "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com",
		clientSecret: "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",
		scopes: []string{
			"https://www.googleapis.com/auth/cloud-platform",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		endpoint: google.Endpoint,
	},
	"antigravity": {
		clientID:     "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com",
		clientSecret: "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",
		scopes: []string{
			"https://www.googleapis.com/auth/cloud-platform",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		endpoint: google.Endpoint,
	},
	"codex": {
		clientID: "app_EMoamEEZ73f0CkXaXp7hrann",
		scopes:   []string{"openid", "profile", "email", "offline_access"},
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://auth.openai.com/oauth/authorize",
			TokenURL: "https://auth.openai.com/oauth/token",
		},
	},
}

// Exchanger refreshes credentials for a fixed set of providers. It
// satisfies credpool.Refresher.
type Exchanger struct {
	httpClient *http.Client
}

// New builds an Exchanger that issues refresh requests through client (pass
// a provider-scoped *http.Client from internal/upstream to honor proxy
// settings; nil uses http.DefaultClient).
func New(client *http.Client) *Exchanger {
	if client == nil {
		client = http.DefaultClient
	}
	return &Exchanger{httpClient: client}
}

// Refresh exchanges c's refresh token for a new access token. It implements
// credpool.Refresher.
func (x *Exchanger) Refresh(ctx context.Context, provider string, c *credstore.Credential) (string, time.Time, string, error) {
	cfg, ok := providerConfigs[provider]
	if !ok {
		return "", time.Time{}, "", &Error{Kind: KindFlow, Code: "UNKNOWN_PROVIDER", Message: fmt.Sprintf("no oauth client configuration for provider %q", provider)}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.clientID,
		ClientSecret: cfg.clientSecret,
		Scopes:       cfg.scopes,
		Endpoint:     cfg.endpoint,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, x.httpClient)
	token := &oauth2.Token{RefreshToken: c.RefreshToken}
	newToken, err := oauthCfg.TokenSource(ctx, token).Token()
	if err != nil {
		return "", time.Time{}, "", classifyExchangeError(err)
	}

	expiresAt := newToken.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}

	project := ""
	if raw, ok := newToken.Extra("cloudaicompanionProject").(string); ok {
		project = raw
	}
	return newToken.AccessToken, expiresAt, project, nil
}

// classifyExchangeError maps an error returned by oauth2's TokenSource into
// the package's taxonomy. oauth2 does not expose a typed RequestTokenError
// the way some other client libraries do; it wraps everything in
// *oauth2.RetrieveError for HTTP-level failures.
func classifyExchangeError(err error) *Error {
	if rerr, ok := err.(*oauth2.RetrieveError); ok {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		if rerr.ErrorCode != "" {
			return &Error{
				Kind:    KindServerResponse,
				Code:    rerr.ErrorCode,
				Message: rerr.ErrorDescription,
				Status:  status,
				Body:    truncate(string(rerr.Body), 100),
			}
		}
		return &Error{
			Kind:   KindUpstreamStatus,
			Status: status,
			Body:   truncate(string(rerr.Body), 100),
		}
	}
	return &Error{Kind: KindRequest, Message: err.Error()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...<truncated>"
}

// EnsureEligible inspects a Google Code Assist onboarding response and
// returns an ineligibility Error if the account has no usable tier,
// following the same ineligible_tiers precedence the onboarding flow uses.
func EnsureEligible(raw []byte) error {
	ineligible := gjson.GetBytes(raw, "ineligibleTiers.0")
	if !ineligible.Exists() {
		return nil
	}
	code := ineligible.Get("reasonCode").String()
	if code == "" {
		code = "ACCOUNT_INELIGIBLE"
	}
	message := ineligible.Get("reasonMessage").String()
	if message == "" {
		message = "Account is not eligible for Gemini Code Assist"
	}
	return &Error{Kind: KindFlow, Code: code, Message: message}
}
