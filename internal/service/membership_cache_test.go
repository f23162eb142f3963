package service

import (
	"context"
	"testing"
	"time"

	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, redis.Wrap(client)
}

func TestMembershipService_DefaultConfigSeesRemovalImmediately(t *testing.T) {
	mr, cache := newMiniRedis(t)
	cfg := config.Load()

	projects := &stubProjects{members: map[[2]uint]bool{{7, 1}: true}}
	svc := NewMembershipService(projects, cache, MembershipConfig{
		CacheTTL:     cfg.Membership.CacheTTL,
		QueryTimeout: cfg.Membership.QueryTimeout,
	}, logger.Discard())
	ctx := context.Background()

	ok, err := svc.IsMember(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, ok)

	projects.remove(7, 1)

	ok, err = svc.IsMember(ctx, 7, 1)
	require.NoError(t, err)
	assert.False(t, ok, "a removed member is refused on the next publish")
	assert.Empty(t, mr.Keys(), "nothing is cached by default")
	assert.Equal(t, 2, projects.calls)
}

func TestMembershipService_CacheTTLBoundsStaleness(t *testing.T) {
	mr, cache := newMiniRedis(t)

	projects := &stubProjects{members: map[[2]uint]bool{{7, 1}: true}}
	svc := NewMembershipService(projects, cache, MembershipConfig{CacheTTL: 30 * time.Second}, logger.Discard())
	ctx := context.Background()

	ok, err := svc.IsMember(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(membershipKey(7, 1)))

	projects.remove(7, 1)

	ok, err = svc.IsMember(ctx, 7, 1)
	require.NoError(t, err)
	assert.True(t, ok, "cached answer served within the TTL")
	assert.Equal(t, 1, projects.calls)

	mr.FastForward(31 * time.Second)

	ok, err = svc.IsMember(ctx, 7, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(membershipKey(7, 1)), "negative answers are not cached")
}
