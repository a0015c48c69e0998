package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalrun/pkg/core"
)

func TestBuntStorage_AddRemove(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Add(testSignal())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	signals, err := store.Signals()
	require.NoError(t, err)
	require.Len(t, signals, 1)

	removed, err := store.Remove(id)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Remove(id)
	require.NoError(t, err)
	require.False(t, removed)

	_, err = store.State(id)
	require.ErrorIs(t, err, core.ErrSignalNotFound)
}

func TestBuntStorage_StatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.db")

	store, err := FromFile(path)
	require.NoError(t, err)

	id, err := store.Add(testSignal())
	require.NoError(t, err)

	state, err := store.State(id)
	require.NoError(t, err)
	state.UpdatesSent = 2
	state.LastUpdatePct = 75
	state.MarkTargetCompleted(1)
	require.NoError(t, store.SaveState(id, state))
	require.NoError(t, store.Close())

	reopened, err := FromFile(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.State(id)
	require.NoError(t, err)
	require.Equal(t, 2, got.UpdatesSent)
	require.Equal(t, 75.0, got.LastUpdatePct)
	require.True(t, got.TargetCompleted(1))
	require.False(t, got.TargetCompleted(0))
}

func TestBuntStorage_SaveStateUnknownSignal(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	err = store.SaveState("missing", core.NewUpdateState())
	require.ErrorIs(t, err, core.ErrSignalNotFound)
}

func TestBuntStorage_EnumerationOrder(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	base := time.Now().UTC().Truncate(time.Second)
	for i, symbol := range []string{"CCCUSD", "AAAUSD", "BBBUSD"} {
		s := testSignal()
		s.Symbol = symbol
		// Reverse insertion order relative to creation time.
		s.CreatedAt = base.Add(time.Duration(3-i) * time.Minute)
		s.ID = core.NewSignalID(symbol, s.Direction, s.CreatedAt)
		_, err := store.Add(s)
		require.NoError(t, err)
	}

	signals, err := store.Signals()
	require.NoError(t, err)
	require.Len(t, signals, 3)
	require.Equal(t, "BBBUSD", signals[0].Symbol)
	require.Equal(t, "AAAUSD", signals[1].Symbol)
	require.Equal(t, "CCCUSD", signals[2].Symbol)
}
