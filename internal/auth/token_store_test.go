package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"superadmin/internal/cache"
)

func TestTokenStoreWithoutRedis(t *testing.T) {
	store := NewTokenStore(nil)
	ctx := context.Background()

	assert.ErrorIs(t, store.Revoke(ctx, "jti-1", time.Minute), cache.ErrDisabled)
	assert.NoError(t, store.Revoke(ctx, "", time.Minute), "tokens without an id have nothing to revoke")
	assert.NoError(t, store.Revoke(ctx, "jti-1", 0), "expired tokens need no blacklist entry")

	revoked, err := store.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
