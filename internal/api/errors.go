package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pollux-gateway/pollux/internal/perr"
)

// writeError renders err as the standard error envelope. Any error that is not
// already a *perr.Error is treated as an opaque internal failure so the
// client never sees a raw Go error string.
func writeError(c *gin.Context, err error) {
	pe, ok := err.(*perr.Error)
	if !ok {
		pe = perr.Internal(err.Error())
	}
	c.JSON(pe.Status, pe.Envelope())
}

func writeErr(c *gin.Context, pe *perr.Error) {
	c.JSON(pe.Status, pe.Envelope())
}
