package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/networth/internal/domain/dto"
	"github.com/guttosm/networth/internal/logger"
)

// ErrorHandler turns errors attached with c.Error into a JSON response
// when the handler did not write one itself.
//
// The last attached error wins. Errors carrying a dto.ErrorResponse as
// Meta use that body; everything else becomes a 500.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}
	last := c.Errors.Last()

	logger.L().Error().
		Err(last.Err).
		Str("request_id", GetRequestID(c)).
		Str("path", c.Request.URL.Path).
		Msg("request failed")

	if c.Writer.Written() {
		return
	}

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	body, ok := last.Meta.(dto.ErrorResponse)
	if !ok {
		body = dto.NewErrorResponse("internal server error", last.Err)
	}
	c.JSON(status, body)
}

// AbortWithError records err on the context and aborts with a JSON error
// body built from msg and err.
func AbortWithError(c *gin.Context, status int, msg string, err error) {
	body := dto.NewErrorResponse(msg, err)
	if err != nil {
		_ = c.Error(err).SetMeta(body)
	}
	c.AbortWithStatusJSON(status, body)
}
