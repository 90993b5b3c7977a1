package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/heirloom-backend/internal/platform/ctxutil"
)

const (
	headerActorID   = "X-Actor-Id"
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachRequestContext stores the actor, trace and request ids on the request
// context and echoes the ids back. It must run after otelgin so an active span
// supplies the trace id.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &ctxutil.RequestData{
			ActorID:   strings.TrimSpace(c.GetHeader(headerActorID)),
			TraceID:   strings.TrimSpace(c.GetHeader(headerTraceID)),
			RequestID: strings.TrimSpace(c.GetHeader(headerRequestID)),
		}
		if rd.RequestID == "" {
			rd.RequestID = uuid.New().String()
		}
		if rd.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				rd.TraceID = sc.TraceID().String()
			} else {
				rd.TraceID = uuid.New().String()
			}
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		if rd.ActorID != "" {
			c.Set("actor_id", rd.ActorID)
		}
		c.Writer.Header().Set(headerTraceID, rd.TraceID)
		c.Writer.Header().Set(headerRequestID, rd.RequestID)
		c.Next()
	}
}
