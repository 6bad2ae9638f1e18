package grpcserver

import (
	"context"
	"testing"

	"github.com/and161185/cms-auth/internal/model"
	"github.com/gofrs/uuid/v5"
)

func TestWithUser_And_UserFromCtx(t *testing.T) {
	t.Parallel()

	if _, ok := UserFromCtx(context.Background()); ok {
		t.Fatalf("expected no user in empty ctx")
	}

	want := model.UserProfile{ID: uuid.Must(uuid.NewV4()), Email: "a@x.io"}
	got, ok := UserFromCtx(WithUser(context.Background(), want))
	if !ok {
		t.Fatalf("expected user in ctx")
	}
	if got != want {
		t.Fatalf("mismatch: got %+v, want %+v", got, want)
	}

	bad := context.WithValue(context.Background(), userKey, "not-a-profile")
	if _, ok := UserFromCtx(bad); ok {
		t.Fatalf("expected miss on wrong typed value")
	}
}
