package recordlog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndLines_RoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	want := []string{"UPDATE 1 0 1 7 42 aabb ccdd", "COMMIT 2 1 1", "END 3 2 1"}
	for _, line := range want {
		require.NoError(t, s.Append(line))
	}

	got, err := s.Lines()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLines_EmptyStoreIsEmpty(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAppend_RotatesAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{SegmentSize: 32, DirPerms: 0750, FilePerms: 0640}

	s, err := Open(dir, opts)
	require.NoError(t, err)

	var want []string
	for i := 0; i < 20; i++ {
		line := "UPDATE line number " + string(rune('A'+i))
		want = append(want, line)
		require.NoError(t, s.Append(line))
	}
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 1, "small segment size should force rotation across multiple files")

	s2, err := Open(dir, opts)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Lines()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpen_RepairsTornTrailingWrite(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append("COMMIT 1 0 1"))
	require.NoError(t, s.Append("END 2 1 1"))
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	path := dir + "/" + entries[0].Name()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-3)) // chop into the last frame's body

	s2, err := Open(dir, nil)
	require.NoError(t, err)
	defer s2.Close()

	lines, err := s2.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"COMMIT 1 0 1"}, lines)

	// the repaired store must still be appendable.
	require.NoError(t, s2.Append("END 2 1 1"))
	lines, err = s2.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"COMMIT 1 0 1", "END 2 1 1"}, lines)
}

func TestOpen_EmptyDirHasNoLines(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultOptions)
	require.NoError(t, err)
	defer s.Close()

	lines, err := s.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}
