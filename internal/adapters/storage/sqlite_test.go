package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/autobid/internal/adapters/storage"
)

func newKV(t *testing.T) *storage.SQLiteKV {
	t.Helper()
	kv, err := storage.NewSQLiteKV(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestSQLiteKV_GetMissing(t *testing.T) {
	kv := newKV(t)
	_, err := kv.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteKV_PutAndOverwrite(t *testing.T) {
	kv := newKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "k", []byte("one")))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	// Upsert: la segunda escritura reemplaza
	require.NoError(t, kv.Put(ctx, "k", []byte("two")))
	got, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestSQLiteKV_KeysAreIndependent(t *testing.T) {
	kv := newKV(t)
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, "a", []byte("1")))
	require.NoError(t, kv.Put(ctx, "b", []byte("2")))

	a, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	b, err := kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "1", string(a))
	assert.Equal(t, "2", string(b))
}
