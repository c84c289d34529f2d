package obscontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndActorRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithActorID(ctx, "42")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "42", ActorIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
