//go:build unix

package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp", "PROJ-my_project.lock"), Path("/tmp", "PROJ", "my project"))
	assert.Equal(t, filepath.Join("/tmp", "A-_.._x.lock"), Path("/tmp", "A", "/../x"))
}

func TestAcquireAndRelease(t *testing.T) {
	path := Path(filepath.Join(t.TempDir(), "nested"), "PROJ", "proj")

	lock, err := Acquire(path, Info{Command: "migrate", Project: "PROJ"})
	require.NoError(t, err)

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, "migrate", info.Command)
	assert.False(t, info.StartedAt.IsZero())

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, path)
	assert.NoError(t, lock.Release(), "second release is a no-op")
}

func TestAcquireBusy(t *testing.T) {
	path := Path(t.TempDir(), "PROJ", "proj")
	first, err := Acquire(path, Info{Command: "migrate", Project: "PROJ"})
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path, Info{Command: "relink", Project: "PROJ"})
	require.ErrorIs(t, err, ErrLockBusy)
	assert.Contains(t, err.Error(), "migrate of PROJ")

	require.NoError(t, first.Release())
	again, err := Acquire(path, Info{Command: "relink", Project: "PROJ"})
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestReadInfoErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadInfo(filepath.Join(dir, "missing.lock"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.lock")
	require.NoError(t, os.WriteFile(bad, []byte("12345"), 0o600))
	_, err = ReadInfo(bad)
	assert.Error(t, err)
}
