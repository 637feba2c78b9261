package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/utils"
)

// RequireStaff lets staff and admin sessions through.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := CurrentSession(c)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if !sess.IsStaff() {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("staff access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
