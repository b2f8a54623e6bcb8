package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Success(t *testing.T) {
	store, dir := newStore(t)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docreview", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml {{{[["), 0600))

	store, err := NewConfigStore(dir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	_, ok := store.Get("storage.backend")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Set("storage.backend", "sqlite"))
	require.NoError(t, store.Set("extraction.burst", 3))
	require.NoError(t, store.Set("extraction.rate", 2.5))
	require.NoError(t, store.Set("artifacts.enabled", true))

	assert.Equal(t, "sqlite", store.GetString("storage.backend"))
	assert.Equal(t, 3, store.GetInt("extraction.burst"))
	assert.Equal(t, 2.5, store.GetFloat("extraction.rate"))
	assert.Equal(t, 3.0, store.GetFloat("extraction.burst"))
	assert.True(t, store.GetBool("artifacts.enabled"))

	// Wrong types and missing keys give zero values.
	assert.Equal(t, "", store.GetString("extraction.burst"))
	assert.Equal(t, 0, store.GetInt("storage.backend"))
	assert.Equal(t, 0.0, store.GetFloat("storage.backend"))
	assert.False(t, store.GetBool("storage.backend"))
	assert.Equal(t, 0.0, store.GetFloat("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Set("storage.backend", "memory"))
	require.NoError(t, store.Set("storage.data_dir", "/var/lib/docreview"))
	require.NoError(t, store.Set("extraction.rate", 2.0))
	require.NoError(t, store.Set("watch.debounce_ms", 250))
	require.NoError(t, store.Set("extraction.ocr_fallback", false))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[storage]")
	assert.Contains(t, string(raw), "[extraction]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", reloaded.GetString("storage.backend"))
	assert.Equal(t, "/var/lib/docreview", reloaded.GetString("storage.data_dir"))
	assert.Equal(t, 2.0, reloaded.GetFloat("extraction.rate"))
	assert.Equal(t, 250, reloaded.GetInt("watch.debounce_ms"))
	assert.False(t, reloaded.GetBool("extraction.ocr_fallback"))
	_, ok := reloaded.Get("extraction.ocr_fallback")
	assert.True(t, ok)
}

func TestConfigStore_PrefixConflictRoundTrips(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Set("watch", true))
	require.NoError(t, store.Set("watch.enabled", false))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.GetBool("watch"))
	_, ok := reloaded.Get("watch.enabled")
	assert.True(t, ok)
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"[storage]",
		`backend = "sqlite"`,
		"",
		"[artifacts]",
		"enabled = true",
		`format = "markdown"`,
		"",
		"[extraction]",
		"rate = 1",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", store.GetString("storage.backend"))
	assert.True(t, store.GetBool("artifacts.enabled"))
	assert.Equal(t, "markdown", store.GetString("artifacts.format"))
	assert.Equal(t, 1.0, store.GetFloat("extraction.rate"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Set("scan.ignore", []string{"node_modules", "vendor"}))
	assert.Equal(t, []string{"node_modules", "vendor"}, store.GetStringSlice("scan.ignore"))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules", "vendor"}, reloaded.GetStringSlice("scan.ignore"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("storage.backend", "sqlite"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SaveWriteError(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("storage.backend", "sqlite"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("storage.backend", "memory"))
	assert.Error(t, store.Save())
}

func TestConfigStore_LoadInvalidTOML(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("storage.backend", "sqlite"))
	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid ][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "worker.key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetFloat(key)
			_, _ = store.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 7, store.GetInt("worker.key7"))
}
