package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape.txt", "/etc/passwd", "", "a/../../b"} {
		_, err := store.Save(key, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("nested/notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	f, err := store.Open("nested/notes.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete("nested/notes.txt"))
	require.NoError(t, store.Delete("nested/notes.txt"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("fresh"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
	_, err = os.Stat(filepath.Join(dir, "fresh.csv"))
	assert.NoError(t, err)
}

func TestLocalObjectStore(t *testing.T) {
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := NewLocalObjectStore(files, "course-materials", "http://localhost:8080/api/v1/files/")

	obj, err := store.Put(context.Background(), "u1/1700000000-intro notes.pdf", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1/files/course-materials/u1/1700000000-intro%20notes.pdf", obj.URL)
	assert.Equal(t, int64(4), obj.Size)

	rc, err := store.Get(context.Background(), obj.Key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF", string(body))

	require.NoError(t, store.Delete(context.Background(), obj.Key))
	_, err = store.Get(context.Background(), obj.Key)
	assert.Error(t, err)
}

func TestLocalObjectStoreShortWrite(t *testing.T) {
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := NewLocalObjectStore(files, "bucket", "http://x/files")

	_, err = store.Put(context.Background(), "k.txt", strings.NewReader("abc"), 10, "text/plain")
	assert.Error(t, err)
	_, err = store.Get(context.Background(), "k.txt")
	assert.Error(t, err)
}
