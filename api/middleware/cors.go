package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"

// CORS returns a gin middleware that sets Cross-Origin Resource Sharing headers.
// An origin outside allowedOrigins gets no allow header; "*" allows every origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	allowAll := allowed["*"]

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()

		switch {
		case origin == "":
			h.Set("Access-Control-Allow-Origin", "*")
		case allowAll || allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
		}

		h.Set("Access-Control-Allow-Methods", allowedMethods)
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "600")
		h.Set("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			h.Set("Allow", allowedMethods)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
