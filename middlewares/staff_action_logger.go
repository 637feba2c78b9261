package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/utils"
)

// StaffActionLogger records who changed which order and whether it worked.
func StaffActionLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		who := "unknown"
		if sess, err := CurrentSession(c); err == nil {
			who = sess.Identifier()
		}
		if c.Writer.Status() < 300 {
			utils.InfoLogger.Printf("staff %s: %s %s ok", who, c.Request.Method, c.Request.URL.Path)
		} else {
			utils.ErrorLogger.Printf("staff %s: %s %s failed with %d", who, c.Request.Method, c.Request.URL.Path, c.Writer.Status())
		}
	}
}
