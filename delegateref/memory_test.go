package delegateref

import (
	"context"
	"testing"

	"github.com/AtRiskMedia/keystone/collab"
	"github.com/stretchr/testify/require"
)

func TestMemoryPersistAndLoadRoundTrip(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Persist(context.Background(), "k1", []byte("value")))

	got, ok, err := m.Load(context.Background(), collab.ArtifactState, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("value"), got)
}

func TestMemoryPersistNilClearsKey(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Persist(context.Background(), "k1", []byte("value")))
	require.NoError(t, m.Persist(context.Background(), "k1", nil))

	_, ok, err := m.Load(context.Background(), collab.ArtifactState, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryLoadMissingKeyReportsNotFound(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Load(context.Background(), collab.ArtifactState, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStatusChangedInvokesCallback(t *testing.T) {
	m := NewMemory()
	var got collab.Status
	m.OnStatus = func(s collab.Status) { got = s }

	m.StatusChanged(collab.Ready())
	require.Equal(t, collab.TagReady, got.Tag)
}
