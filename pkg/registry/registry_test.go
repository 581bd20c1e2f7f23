package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(FamilyAlert, filepath.Join(t.TempDir(), "models", "models_meta.json"), NewLocalLocker())
	require.NoError(t, err)
	return store
}

func countActive(reg Registry) int {
	n := 0
	for _, m := range reg.Models {
		if m.Active {
			n++
		}
	}
	return n
}

func TestLoadCreatesEmptyDocument(t *testing.T) {
	store := newTestStore(t)

	reg, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, reg.Models)

	content, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"models": []}`, string(content))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestPromoteKeepsExactlyOneActive(t *testing.T) {
	reg := Registry{}
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("model_%d", i)
		reg = Promote(reg, ModelRecord{Name: name})

		require.Len(t, reg.Models, i+1)
		assert.Equal(t, 1, countActive(reg))
		active, ok := reg.Active()
		require.True(t, ok)
		assert.Equal(t, name, active.Name)
		assert.True(t, reg.Models[len(reg.Models)-1].Active)
	}
}

func TestPromoteDoesNotMutateInput(t *testing.T) {
	before := Promote(Registry{}, ModelRecord{Name: "a"})
	_ = Promote(before, ModelRecord{Name: "b"})

	assert.True(t, before.Models[0].Active)
}

func TestActivePrefersLastDuplicate(t *testing.T) {
	reg := Registry{Models: []ModelRecord{
		{Name: "first", Active: true},
		{Name: "middle"},
		{Name: "last", Active: true},
	}}

	active, ok := reg.Active()
	require.True(t, ok)
	assert.Equal(t, "last", active.Name)
}

func TestStorePromotePersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

	_, err := store.Promote(ctx, ModelRecord{Name: "alert_rf_20261019-083000.json", ModelType: "rf", F1Macro: Float(0.8), CreatedAt: created})
	require.NoError(t, err)
	_, err = store.Promote(ctx, ModelRecord{Name: "alert_gb_20261019-083100.json", ModelType: "gb", F1Macro: Float(0.9), CreatedAt: created})
	require.NoError(t, err)

	models, err := store.List()
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.False(t, models[0].Active)
	assert.True(t, models[1].Active)
	assert.Equal(t, 0.9, *models[1].F1Macro)
	assert.Nil(t, models[1].MAE)

	active, err := store.Active()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "gb", active.ModelType)
}

func TestConcurrentPromotionsKeepSingleActive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	// Two stores over the same document share the default locker.
	a, err := NewStore(FamilyFood, path, nil)
	require.NoError(t, err)
	b, err := NewStore(FamilyFood, path, nil)
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := a
			if i%2 == 1 {
				store = b
			}
			_, err := store.Promote(context.Background(), ModelRecord{Name: fmt.Sprintf("m%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reg, err := a.Load()
	require.NoError(t, err)
	assert.Len(t, reg.Models, writers)
	assert.Equal(t, 1, countActive(reg))
	assert.True(t, reg.Models[writers-1].Active)
}

func TestReadersNeverSeeCorruptDocument(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, err := store.Promote(context.Background(), ModelRecord{Name: fmt.Sprintf("m%d", i)})
			assert.NoError(t, err)
		}
	}()

	for {
		select {
		case <-done:
			entries, err := os.ReadDir(filepath.Dir(store.Path()))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temp files must not be left behind")
			return
		case <-ctx.Done():
			return
		default:
			content, err := os.ReadFile(store.Path())
			if err != nil {
				continue
			}
			var reg Registry
			require.NoError(t, json.Unmarshal(content, &reg))
		}
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}

func TestParseFamily(t *testing.T) {
	f, ok := ParseFamily("food")
	assert.True(t, ok)
	assert.Equal(t, FamilyFood, f)
	_, ok = ParseFamily("sleep")
	assert.False(t, ok)
}
