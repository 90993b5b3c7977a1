package ctxutil

import (
	"context"
	"testing"
)

func TestActorIDOutsideRequest(t *testing.T) {
	if got := ActorID(context.Background()); got != "" {
		t.Fatalf("ActorID: want empty got=%q", got)
	}
	if LogFields(nil) != nil {
		t.Fatalf("LogFields(nil): want nil")
	}
}

func TestLogFieldsSkipsBlanks(t *testing.T) {
	ctx := WithRequestData(context.Background(), &RequestData{ActorID: " archivist ", RequestID: "req-9"})
	if got := ActorID(ctx); got != "archivist" {
		t.Fatalf("ActorID: want=archivist got=%q", got)
	}
	got := LogFields(ctx)
	if len(got) != 4 || got[0] != "request_id" || got[1] != "req-9" || got[2] != "actor_id" {
		t.Fatalf("LogFields: %v", got)
	}
}
