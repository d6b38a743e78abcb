package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkipList(t *testing.T) {
	s, err := ParseSkipList(strings.NewReader(`
# noisy rules
B
  padded  
/^test_.*$/

B
`))
	require.NoError(t, err)

	assert.True(t, s.Skip("B"))
	assert.True(t, s.Skip("padded"))
	assert.True(t, s.Skip("test_one"))
	assert.False(t, s.Skip("A"))
	assert.False(t, s.Skip("my_test_one"))
	assert.False(t, s.Skip("# noisy rules"))
	assert.Equal(t, 3, s.Len())
}

func TestParseSkipListBadPattern(t *testing.T) {
	_, err := ParseSkipList(strings.NewReader("ok\n/([a-z/\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadSkipList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skip.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	s, err := LoadSkipList(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Skip("two"))

	_, err = LoadSkipList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
