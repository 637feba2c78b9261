package middlewares

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/utils"
)

// APIKeyHeader carries the anon or service key.
const APIKeyHeader = "apikey"

func keyMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func requireKey(keys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		if got == "" {
			got = c.Query(APIKeyHeader)
		}
		for _, want := range keys {
			if keyMatches(got, want) {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid API key"))
		c.Abort()
	}
}

// APIKeyMiddleware accepts the anon key. The service key is accepted too
// since it grants strictly more.
func APIKeyMiddleware(anonKey, serviceKey string) gin.HandlerFunc {
	return requireKey(anonKey, serviceKey)
}

// ServiceKeyMiddleware guards maintenance routes.
func ServiceKeyMiddleware(serviceKey string) gin.HandlerFunc {
	return requireKey(serviceKey)
}
