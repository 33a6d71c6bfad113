package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"visar-backend/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStoragePath(t *testing.T) {
	id := uuid.MustParse("3f2b8c1e-0000-4000-8000-000000000001")
	path := generateStoragePath(id, "my petition.pdf")
	assert.Equal(t, "3f/3f2b8c1e-0000-4000-8000-000000000001_my_petition.pdf", path)

	path = generateStoragePath(id, "../../etc/passwd")
	assert.NotContains(t, path, "..")
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := store.Upload(ctx, uuid.New(), "award.txt", strings.NewReader("Patent X award 2019"))
	require.NoError(t, err)

	rc, err := store.Download(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "Patent X award 2019", string(data))

	require.NoError(t, store.Delete(ctx, path))
	_, err = store.Download(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, path))
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	s, err := NewStorage(ctx, config.StorageConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStorage(ctx, config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(ctx, config.StorageConfig{Type: "s3"})
	assert.Error(t, err)

	_, err = NewStorage(ctx, config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestSniff_PreservesStream(t *testing.T) {
	contentType, body, err := sniff(strings.NewReader("%PDF-1.4\nrest of file"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\nrest of file", string(data))
}
