package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_RoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "state.yaml"))

	st, err := f.Load()
	require.NoError(t, err)
	assert.True(t, st.LastSync.IsZero())

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.Save(State{LastSync: now, LastRunID: "run-1", RootRevision: 9, DurationMS: 120}))

	st, err = f.Load()
	require.NoError(t, err)
	assert.True(t, st.LastSync.Equal(now))
	assert.Equal(t, "run-1", st.LastRunID)
	assert.Equal(t, int64(9), st.RootRevision)

	require.NoError(t, f.Reset())
	st, err = f.Load()
	require.NoError(t, err)
	assert.True(t, st.LastSync.IsZero())
}

func TestState_Age(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 5*time.Minute, State{LastSync: now.Add(-5 * time.Minute)}.Age(now))
	assert.Greater(t, State{}.Age(now), 100*365*24*time.Hour)
}
