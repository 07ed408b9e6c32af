package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/speeder2raw-web/tool"
)

// OnlyAllowLocal rejects clients that are not on the loopback address.
func OnlyAllowLocal(c *gin.Context) {
	if c.ClientIP() == "127.0.0.1" || c.ClientIP() == "::1" {
		c.Next()
	} else {
		c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
	}
}
