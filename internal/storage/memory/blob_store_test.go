package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "example.com/home.html", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "memory://example.com/home.html", uri)

	got, ok := store.Get("example.com/home.html")
	require.True(t, ok)
	require.Equal(t, "<html></html>", string(got))
	require.Equal(t, 1, store.Len())
}

func TestBlobStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("original")
	_, err := store.PutObject(context.Background(), "page", "text/html", payload)
	require.NoError(t, err)

	payload[0] = 'X'
	got, ok := store.Get("page")
	require.True(t, ok)
	require.Equal(t, "original", string(got))
}

func TestBlobStoreRequiresPath(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "", "text/html", []byte("x"))
	require.Error(t, err)
	_, ok := store.Get("missing")
	require.False(t, ok)
}
