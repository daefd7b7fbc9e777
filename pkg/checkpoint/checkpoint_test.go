package checkpoint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensepurge/pkg/licenses"
	"licensepurge/pkg/logger"
	"licensepurge/pkg/removal"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(filepath.Join(t.TempDir(), "state", FileName))
	require.NoError(t, err)
	return mgr.WithLogger(logger.NewTestLogger())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	shrink := 1.2

	state := removal.State{
		Queue:        []licenses.PackageID{1324901, 1324453, 1318820},
		Index:        2,
		RemovedCount: 1,
		Cooldown:     time.Duration(float64(2*time.Minute) / shrink / shrink),
	}
	require.NoError(t, mgr.Save(state))
	assert.True(t, mgr.Exists())

	loaded, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state, *loaded)
}

func TestRoundTripPreservesProgressTriple(t *testing.T) {
	mgr := newTestManager(t)
	queue := []licenses.PackageID{1, 2, 3, 4, 5}
	growth, shrink := 1.5, 1.2

	cooldowns := []time.Duration{
		time.Minute,
		90 * time.Second,
		time.Duration(float64(95*time.Second) * growth),
		time.Duration(float64(7*time.Minute+13) / shrink),
		30 * time.Minute,
		1234567891,
	}
	for i, cd := range cooldowns {
		state := removal.State{Queue: queue, Index: i % 5, RemovedCount: i % 5, Cooldown: cd}
		require.NoError(t, mgr.Save(state))

		loaded, err := mgr.Load()
		require.NoError(t, err)
		assert.Equal(t, state.Index, loaded.Index)
		assert.Equal(t, state.RemovedCount, loaded.RemovedCount)
		assert.Equal(t, state.Cooldown, loaded.Cooldown)
	}
}

func TestFileFormat(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Save(removal.State{
		Queue:        []licenses.PackageID{101, 102},
		Index:        1,
		RemovedCount: 1,
		Cooldown:     90 * time.Second,
	}))

	data, err := os.ReadFile(mgr.Path())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []interface{}{101.0, 102.0}, raw["subIDs"])
	assert.Equal(t, 1.0, raw["index"])
	assert.Equal(t, 1.0, raw["removedCount"])
	assert.Equal(t, 90000.0, raw["dynamicCooldown"])
	assert.Equal(t, 1.0, raw["version"])
	assert.Contains(t, raw, "updatedAt")

	info, err := os.Stat(mgr.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadMissingFile(t *testing.T) {
	mgr := newTestManager(t)
	state, err := mgr.Load()
	assert.NoError(t, err)
	assert.Nil(t, state)

	info, err := mgr.Info()
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestLoadCorruptFile(t *testing.T) {
	tests := map[string]string{
		"not json":        "<html>oops</html>",
		"truncated":       `{"subIDs": [1, 2`,
		"index too large": `{"subIDs": [1], "index": 3, "removedCount": 0, "dynamicCooldown": 60000}`,
		"negative index":  `{"subIDs": [1], "index": -1, "removedCount": 0, "dynamicCooldown": 60000}`,
		"removed > index": `{"subIDs": [1, 2], "index": 1, "removedCount": 2, "dynamicCooldown": 60000}`,
		"bad cooldown":    `{"subIDs": [1], "index": 0, "removedCount": 0, "dynamicCooldown": -5}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			mgr := newTestManager(t)
			require.NoError(t, os.WriteFile(mgr.Path(), []byte(content), 0600))

			_, err := mgr.Load()
			assert.True(t, errors.Is(err, ErrCorruptState))
			assert.True(t, errors.Is(err, removal.ErrCorruptState))
		})
	}
}

func TestLoadLegacyDocument(t *testing.T) {
	// Documents without version or timestamp still load
	mgr := newTestManager(t)
	content := `{"subIDs":[1324901,1324453],"index":1,"removedCount":1,"dynamicCooldown":50000}`
	require.NoError(t, os.WriteFile(mgr.Path(), []byte(content), 0600))

	state, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, []licenses.PackageID{1324901, 1324453}, state.Queue)
	assert.Equal(t, 50*time.Second, state.Cooldown)
}

func TestClear(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Save(removal.State{Queue: []licenses.PackageID{1}, Cooldown: time.Minute}))

	require.NoError(t, mgr.Clear())
	assert.False(t, mgr.Exists())

	// Clearing twice is fine
	assert.NoError(t, mgr.Clear())
}

func TestNoTempFileLeftBehind(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Save(removal.State{Queue: []licenses.PackageID{1}, Cooldown: time.Minute}))

	_, err := os.Stat(mgr.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	first, err := NewManager(path)
	require.NoError(t, err)
	second, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, first.Lock())

	err = second.Lock()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}

func TestInfo(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Save(removal.State{
		Queue:        []licenses.PackageID{1, 2, 3},
		Index:        2,
		RemovedCount: 1,
		Cooldown:     2 * time.Minute,
	}))

	info, err := mgr.Info()
	require.NoError(t, err)
	assert.Equal(t, 2, info["index"])
	assert.Equal(t, 3, info["total"])
	assert.Equal(t, 1, info["removed"])
	assert.Equal(t, 2*time.Minute, info["dynamic_cooldown"])
	assert.Equal(t, mgr.Path(), info["path"])
}

func TestNewManagerEmptyPath(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)
}

func TestManagerImplementsStateStore(t *testing.T) {
	var _ removal.StateStore = newTestManager(t)
}
