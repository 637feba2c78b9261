package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/utils"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// Query string tidak dicatat karena bisa berisi token websocket
		utils.InfoLogger.Printf("%s | %3d | %13v | %15s | %s", c.Request.Method, c.Writer.Status(), time.Since(start), c.ClientIP(), path)
	}
}
