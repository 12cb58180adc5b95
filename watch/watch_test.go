package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startWatcher(t *testing.T, root string) (*atomic.Int32, context.CancelFunc, chan error) {
	t.Helper()
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(root, 20*time.Millisecond, zaptest.NewLogger(t))
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	return &runs, cancel, done
}

func TestRunRegeneratesOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contract.py"), []byte("x = 1\n"), 0o644))

	runs, cancel, done := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "contract.py"), []byte("x = 2\n"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunIgnoresNonPython(t *testing.T) {
	dir := t.TempDir()
	runs, cancel, done := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestRunWatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	runs, cancel, done := startWatcher(t, dir)

	sub := filepath.Join(dir, "models")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "account.py"), []byte("x = 1\n"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), 0, nil)
	err := w.Run(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}
