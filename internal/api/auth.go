package api

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/pollux-gateway/pollux/internal/perr"
)

// apiKeyHeader is the inbound credential every non-resource:add route
// requires: "x-goog-api-key: <pollux_key>".
const apiKeyHeader = "x-goog-api-key"

// requireAPIKey rejects any request whose x-goog-api-key header does not
// match polluxKey in constant time.
func requireAPIKey(polluxKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(apiKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(polluxKey)) != 1 {
			writeErr(c, perr.Unauthorized("missing or invalid x-goog-api-key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
