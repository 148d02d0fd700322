package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pollux-gateway/pollux/internal/perr"
)

var defaultGenerationMethods = []string{"generateContent", "streamGenerateContent"}

// listModels handles GET /{provider}/v1beta/models, rendering the catalog
// entries the named provider is configured to serve.
func (rt *Router) listModels(c *gin.Context) {
	runtime, ok := rt.runtime(c.Param("provider"))
	if !ok {
		writeErr(c, perr.Validation("unknown provider %q", c.Param("provider")))
		return
	}

	names := rt.catalog.NamesFor(runtime.ResourceMask)
	models := make([]gin.H, 0, len(names))
	for _, name := range names {
		m, _ := rt.catalog.Lookup(name)
		methods := m.SupportedGenerationMethods
		if len(methods) == 0 {
			methods = defaultGenerationMethods
		}
		models = append(models, gin.H{
			"name":                       modelResourceName(name),
			"displayName":                name,
			"supportedGenerationMethods": methods,
			"inputTokenLimit":            m.Limits.MaxInputTokens,
			"outputTokenLimit":           m.Limits.MaxOutputTokens,
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func modelResourceName(name string) string {
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}
