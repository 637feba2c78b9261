package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/session"
	"github.com/yeremiapane/canteen-app/utils"
)

// Gin context keys set by AuthMiddleware.
const (
	ContextSession = "session"
	ContextToken   = "token"
)

// bearerToken reads "Authorization: Bearer <token>" or, for websocket
// clients that cannot set headers, the token query parameter.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware decodes the JWT into a session and stores it in both the
// gin context and the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil || claims == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}
		if claims.Session.ID == 0 {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid user ID in token"))
			c.Abort()
			return
		}

		sess := claims.Session
		c.Set(ContextSession, &sess)
		c.Set(ContextToken, tokenString)
		c.Set("userID", sess.ID)
		c.Set("role", sess.Role)
		c.Request = c.Request.WithContext(session.WithContext(c.Request.Context(), &sess))

		c.Next()
	}
}

// CurrentSession returns the session stored by AuthMiddleware.
func CurrentSession(c *gin.Context) (*session.Session, error) {
	if v, ok := c.Get(ContextSession); ok {
		if s, ok := v.(*session.Session); ok && s != nil {
			return s, nil
		}
	}
	return session.FromContext(c.Request.Context())
}
