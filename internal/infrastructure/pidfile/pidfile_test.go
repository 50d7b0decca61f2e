package pidfile_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/pidfile"
)

// pid far above any pid_max, never a live process
const deadPID = 2147483600

func TestAcquireWritesCurrentPID(t *testing.T) {
	pf := pidfile.New(filepath.Join(t.TempDir(), "fishtrack.pid"))

	require.NoError(t, pf.Acquire())

	pid, err := pf.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, ok := pf.Running()
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), running)
}

func TestAcquireFailsWhileOwnerIsAlive(t *testing.T) {
	pf := pidfile.New(filepath.Join(t.TempDir(), "fishtrack.pid"))
	require.NoError(t, pf.Acquire())

	err := pf.Acquire()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishtrack.pid")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d\n", deadPID)), 0o644))
	pf := pidfile.New(path)

	_, ok := pf.Running()
	assert.False(t, ok)

	require.NoError(t, pf.Acquire())
	pid, err := pf.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishtrack.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))
	pf := pidfile.New(path)

	_, err := pf.ReadPID()
	require.Error(t, err)

	require.NoError(t, pf.Acquire())
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishtrack.pid")
	pf := pidfile.New(path)
	require.NoError(t, pf.Acquire())

	require.NoError(t, pf.Release())
	require.NoError(t, pf.Release())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestKillExistingWithoutOwnerReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fishtrack.pid")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d\n", deadPID)), 0o644))

	require.NoError(t, pidfile.New(path).KillExisting())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
