package ctxutil

import (
	"context"
	"strings"
)

type requestDataKey struct{}

// RequestData is what the edge knows about a request. Authentication happens
// upstream, so ActorID is taken as given.
type RequestData struct {
	ActorID   string
	TraceID   string
	RequestID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// ActorID returns the trimmed actor id, or "" outside a request.
func ActorID(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return strings.TrimSpace(rd.ActorID)
	}
	return ""
}

// LogFields returns request identifiers as logger key/value pairs, skipping blanks.
func LogFields(ctx context.Context) []any {
	rd := GetRequestData(ctx)
	if rd == nil {
		return nil
	}
	var out []any
	for _, kv := range [][2]string{{"trace_id", rd.TraceID}, {"request_id", rd.RequestID}, {"actor_id", rd.ActorID}} {
		if kv[1] != "" {
			out = append(out, kv[0], kv[1])
		}
	}
	return out
}
