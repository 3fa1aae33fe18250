package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path string, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestMemoryStore(t *testing.T) {
	s := &MemoryStore{}

	token, err := s.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Set("token"))
	token, err = s.Get()
	require.NoError(t, err)
	assert.Equal(t, "token", token)

	require.NoError(t, s.Clear())
	token, err = s.Get()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileStore(t *testing.T) {
	t.Run("missing file is no token", func(t *testing.T) {
		s := NewFileStore(filepath.Join(t.TempDir(), "session.json"))

		token, err := s.Get()

		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("set get clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "session.json")
		s := NewFileStore(path)

		require.NoError(t, s.Set("token"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "only owner may read the token")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"access_token": "token"}`, string(data))

		token, err := NewFileStore(path).Get()
		require.NoError(t, err)
		assert.Equal(t, "token", token, "token survives new store")

		require.NoError(t, s.Clear())
		require.NoError(t, s.Clear(), "clear twice is fine")
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("broken file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, writeFile(path, "not json"))

		_, err := NewFileStore(path).Get()

		require.Error(t, err)
	})
}
