package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, ModelKey, []byte(`{"version":1}`)))
	require.NoError(t, store.Put(ctx, EncoderKey, []byte(`{"revision":"abc"}`)))

	data, err := store.Get(ctx, ModelKey)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	objects, err := store.List(ctx, "model/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
}

func TestLocalStoreMissingKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "model/absent.json")
	require.Error(t, err)
}
