package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request identifier between client and server.
const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the gin.Context key holding the request ID string.
const RequestIDKey = "request_id"

// RequestIDMiddleware tags every request with an identifier. An inbound
// X-Request-ID (from a load balancer or the caller) is trusted and reused;
// otherwise a fresh UUID is minted. The ID lands in the gin context under
// RequestIDKey and is echoed in the response header so clients can quote it
// when reporting problems.
//
// Install this before the logging middleware so every request log line
// carries the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
