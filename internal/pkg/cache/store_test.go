package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	_, err := store.Get(ctx, "statistics:community")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "statistics:community", []byte(`{"totalIssues":1}`), time.Minute))
	val, err := store.Get(ctx, "statistics:community")
	require.NoError(t, err)
	assert.Equal(t, `{"totalIssues":1}`, string(val))

	require.NoError(t, store.Delete(ctx, "statistics:community", "unknown"))
	_, err = store.Get(ctx, "statistics:community")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreExpiration(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
