package shader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadKeepsEventsDuringRead(t *testing.T) {
	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "a.glsl")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	require.NoError(t, os.Chtimes(path, start, start))
	f, err := NewFile(FileConfig{Path: path, LiveReload: true, Watcher: w})
	require.NoError(t, err)

	// An editor saves after the reload stat the file and before it reads it.
	gens := f.watcherGens()
	info, err := os.Stat(path)
	require.NoError(t, err)
	saved := start.Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	require.NoError(t, os.Chtimes(path, saved, saved))
	w.bump(path)
	require.NoError(t, f.reload(info.ModTime(), gens))

	changed, err := f.CheckChanges()
	require.NoError(t, err)
	assert.True(t, changed, "save during the read is seen by the next check")
	assert.Equal(t, "two", f.Text())
	assert.True(t, f.modTime.Equal(saved))
}

func TestWatcherConcurrentClose(t *testing.T) {
	w, err := NewWatcher(nil)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Close())
		}()
	}
	wg.Wait()
	assert.NoError(t, w.Close())
}
