package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lifeboard-backend/internal/http/response"
	"github.com/yungbote/lifeboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
)

// BodyLimit caps request bodies at maxBytes. Reads past the cap fail with
// *http.MaxBytesError.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// Recovery turns panics into a 500 error envelope and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		if log != nil {
			fields := append([]interface{}{"panic", rec, "stack", string(debug.Stack())}, ctxutil.LogFields(c.Request.Context())...)
			log.Error("panic recovered", fields...)
		}
		response.RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	})
}
