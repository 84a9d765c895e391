package middleware

import (
	"ftc-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Error renders the last error attached to the context, if the handler did
// not already write a response.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		be := errutil.From(last.Err)
		status := be.Code.HTTPStatus()
		if status >= 500 {
			span := trace.SpanFromContext(c.Request.Context())
			zap.L().Error("request failed",
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("path", c.FullPath()),
				zap.Error(last.Err),
			)
		}
		c.JSON(status, be.JSON())
	}
}

// Abort attaches err and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
