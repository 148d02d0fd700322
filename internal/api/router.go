package api

import (
	"github.com/gin-gonic/gin"
)

// Engine builds the Gin engine with every route wired up.
func (rt *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog())

	// resource:add is the one unauthenticated surface; every other route
	// requires the inbound pollux key.
	engine.POST("/:provider/resource:add", rt.resourceAdd)

	authed := engine.Group("/")
	authed.Use(requireAPIKey(rt.polluxKey))

	authed.GET("/:provider/v1beta/models", rt.listModels)
	authed.POST("/:provider/v1beta/models/:action", rt.generateContent)
	authed.POST("/v1/chat/completions", rt.chatCompletions)
	authed.POST("/:provider/v1/chat/completions", rt.chatCompletions)

	return engine
}
