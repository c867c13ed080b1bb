package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundtrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	fileID := uuid.New()

	path, err := store.Upload(ctx, fileID, "report draft.txt", strings.NewReader("archived report body"))
	require.NoError(t, err)
	assert.Contains(t, path, fileID.String())
	assert.NotContains(t, path, " ", "spaces are sanitized out of storage paths")

	reader, err := store.Download(ctx, path)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "archived report body", string(data))
}

func TestLocalStorageDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	path, err := store.Upload(ctx, uuid.New(), "evidence.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, path))

	_, err = store.Download(ctx, path)
	assert.Error(t, err)

	// Deleting a missing object is not an error.
	assert.NoError(t, store.Delete(ctx, path))
}

func TestLocalStorageDownloadMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "no/such/object.txt")
	assert.Error(t, err)
}
