package app

import (
	"context"
	"sync"
	"testing"

	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocker(t *testing.T) {
	cfg := testConfig(t)

	for _, backend := range []string{"", "local"} {
		cfg.RegistryLockBackend = backend
		locker, err := NewLocker(cfg)
		require.NoError(t, err)
		assert.Same(t, registry.DefaultLocalLocker, locker)
	}

	cfg.RegistryLockBackend = "redis"
	locker, err := NewLocker(cfg)
	require.NoError(t, err)
	assert.IsType(t, &registry.RedisLocker{}, locker)

	cfg.RegistryLockBackend = "etcd"
	_, err = NewLocker(cfg)
	assert.ErrorContains(t, err, `"etcd"`)
}

type countingLocker struct {
	registry.Locker
	mu   sync.Mutex
	keys []string
}

func (c *countingLocker) Lock(ctx context.Context, key string) (func(), error) {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return c.Locker.Lock(ctx, key)
}

func TestConnectLocksReachesBootstrapPromotion(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistryLockBackend = "local"
	res, deps, err := ConnectLocks(cfg)
	require.NoError(t, err)
	defer res.Close()
	assert.Nil(t, deps.Twins)
	assert.Nil(t, deps.Journal)

	locker := &countingLocker{Locker: deps.Locker}
	deps.Locker = locker
	p, err := New(cfg, deps)
	require.NoError(t, err)

	_, err = p.PredictFood(context.Background(), []models.MealItem{{Name: "idli", Quantity: 1}})
	require.NoError(t, err)
	assert.NotEmpty(t, locker.keys)
}
