package cache

import (
	"context"
	"testing"

	"github.com/planpilot/planpilot/internal/config"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	Value string `json:"value"`
}

func newTestCache() Cache {
	return NewInMemoryCache(config.GetDefaultConfig(), logger.GetLogger())
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "plans", BuildKey("plans"))
	assert.Equal(t, "plans:list", BuildKey("plans", "list"))
	assert.Equal(t, "plans:id:plan_123", BuildKey("plans", "id", "plan_123"))
}

func TestGetOrSetMemoizes(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) (*fakeResult, error) {
		calls++
		return &fakeResult{Value: "computed"}, nil
	}

	first, err := GetOrSet(ctx, c, "k", 0, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", first.Value)

	second, err := GetOrSet(ctx, c, "k", 0, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", second.Value)
	assert.Equal(t, 1, calls, "hit must skip the computation")
}

func TestGetOrSetDoesNotCacheErrors(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) (*fakeResult, error) {
		calls++
		return nil, ierr.NewError("boom").Mark(ierr.ErrDatabase)
	}

	_, err := GetOrSet(ctx, c, "k", 0, compute)
	require.Error(t, err)
	_, err = GetOrSet(ctx, c, "k", 0, compute)
	require.Error(t, err)
	assert.Equal(t, 2, calls, "errors must not be cached")
}

func TestGetOrSetTreatsUndecodableAsMiss(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	// A corrupt entry that is neither *fakeResult nor valid JSON.
	c.Set(ctx, "k", "not-json", 0)

	calls := 0
	result, err := GetOrSet(ctx, c, "k", 0, func(ctx context.Context) (*fakeResult, error) {
		calls++
		return &fakeResult{Value: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", result.Value)
	assert.Equal(t, 1, calls)

	// The corrupt entry was replaced; next call is a hit.
	_, err = GetOrSet(ctx, c, "k", 0, func(ctx context.Context) (*fakeResult, error) {
		calls++
		return nil, ierr.NewError("should not run").Mark(ierr.ErrInternal)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetDecodesJSONString(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	// Redis-backed caches hand back the JSON wire form.
	c.Set(ctx, "k", `{"value":"wire"}`, 0)

	result, err := GetOrSet(ctx, c, "k", 0, func(ctx context.Context) (*fakeResult, error) {
		return nil, ierr.NewError("should not run").Mark(ierr.ErrInternal)
	})
	require.NoError(t, err)
	assert.Equal(t, "wire", result.Value)
}

func TestDeleteByPrefix(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	c.Set(ctx, "plans:id:a", &fakeResult{Value: "a"}, 0)
	c.Set(ctx, "plans:list", &fakeResult{Value: "list"}, 0)
	c.Set(ctx, "users:id:u", &fakeResult{Value: "u"}, 0)

	c.DeleteByPrefix(ctx, "plans")

	_, found := c.Get(ctx, "plans:id:a")
	assert.False(t, found)
	_, found = c.Get(ctx, "plans:list")
	assert.False(t, found)
	_, found = c.Get(ctx, "users:id:u")
	assert.True(t, found)
}

func TestDisabledCacheNeverHits(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = false
	c := NewInMemoryCache(cfg, logger.GetLogger())
	ctx := context.Background()

	c.Set(ctx, "k", &fakeResult{Value: "v"}, 0)
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}
