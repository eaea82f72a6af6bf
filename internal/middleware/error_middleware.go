package middleware

import (
	"taskchat/internal/transport/httpdto"
	taskerrors "taskchat/pkg/errors"
	"taskchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns errors attached to the gin context into taxonomy
// responses.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}
		c.JSON(httpdto.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), taskerrors.Code(err)))
	}
}
