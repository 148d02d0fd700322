package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/pollux-gateway/pollux/internal/perr"
)

// resourceAdd handles POST /{provider}/resource:add: a zero-trust credential
// ingestion endpoint. The body must be a JSON array of objects carrying
// refresh_token (alias refreshToken); every other field is ignored and
// tokens are deduplicated within the request before submission. The
// response is always 202 once the body parses, win or lose — outcomes are
// logged only, never surfaced to the caller.
func (rt *Router) resourceAdd(c *gin.Context) {
	runtime, ok := rt.runtime(c.Param("provider"))
	if !ok {
		writeErr(c, perr.Validation("unknown provider %q", c.Param("provider")))
		return
	}

	rawBody, err := c.GetRawData()
	parsed := gjson.ParseBytes(rawBody)
	if err != nil || !parsed.IsArray() {
		writeErr(c, perr.Validation("request body must be a JSON array, e.g. [{\"refresh_token\":\"...\"}]"))
		return
	}

	seen := make(map[string]struct{})
	var tokens []string
	parsed.ForEach(func(_, item gjson.Result) bool {
		tok := item.Get("refresh_token")
		if !tok.Exists() {
			tok = item.Get("refreshToken")
		}
		t := strings.TrimSpace(tok.String())
		if t == "" {
			return true
		}
		if _, dup := seen[t]; dup {
			return true
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
		return true
	})

	// Ingestion continues after the response is written; the request
	// context is canceled once the handler returns, so this uses a
	// detached context rather than c.Request.Context().
	go func() {
		if ierr := runtime.Pool.SubmitRefreshTokens(context.Background(), runtime.Name, tokens, runtime.ResourceMask); ierr != nil {
			log.WithError(ierr).WithField("provider", runtime.Name).Warn("api: resource:add ingestion failed")
		}
	}()

	c.String(http.StatusAccepted, "Success")
}
