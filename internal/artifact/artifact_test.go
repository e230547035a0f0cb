package artifact

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	s := NewFileStore(dir)

	loc, err := s.Put("Deep-House.wav", []byte("RIFF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, "file://"))

	u, err := url.Parse(loc)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.FromSlash(u.Path))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}

func TestFileStoreStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	_, err := s.Put("../escape.wav", []byte("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.wav"))
	assert.NoError(t, err)
}

func TestMemoryStoreLocatorAndGet(t *testing.T) {
	s := NewMemoryStore("/exports", 4)

	loc, err := s.Put("Late Night.wav", []byte("abc"))
	require.NoError(t, err)

	parts := strings.Split(strings.TrimPrefix(loc, "/exports/"), "/")
	require.Len(t, parts, 2)
	assert.Equal(t, "Late%20Night.wav", parts[1])

	a, err := s.Get(parts[0])
	require.NoError(t, err)
	assert.Equal(t, "Late Night.wav", a.Name)
	assert.Equal(t, []byte("abc"), a.Data)
}

func TestMemoryStoreRetention(t *testing.T) {
	s := NewMemoryStore("/x", 2)
	first, _ := s.Put("a.wav", nil)
	_, _ = s.Put("b.wav", nil)
	_, _ = s.Put("c.wav", nil)

	assert.Equal(t, 2, s.Len())
	id := strings.Split(strings.TrimPrefix(first, "/x/"), "/")[0]
	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRevoke(t *testing.T) {
	s := NewMemoryStore("/x", 0)
	loc, _ := s.Put("a.wav", []byte("1"))
	id := strings.Split(strings.TrimPrefix(loc, "/x/"), "/")[0]

	assert.True(t, s.Revoke(id))
	assert.False(t, s.Revoke(id))
	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}
