package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userID"
	userIDQuery  = "userId"
	userIDCookie = "userid"
)

// identity reads the acting user from the userId query parameter, falling back to the userid cookie.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query(userIDQuery)
		if userID == "" {
			if cookie, err := c.Cookie(userIDCookie); err == nil {
				userID = cookie
			}
		}

		if userID != "" {
			c.Set(userIDKey, userID)
		}

		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorBody{
				ErrorType: "unauthorized",
				Info:      "user identity is required",
			}))
			return
		}

		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
