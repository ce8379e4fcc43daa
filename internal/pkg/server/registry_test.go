package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistrySingleLoginPerUsername(t *testing.T) {
	r := NewRegistry()
	first := uuid.New()
	second := uuid.New()

	require.True(t, r.Login("test", first))
	require.False(t, r.Login("test", second))
	require.Equal(t, 1, r.Count())

	r.Logout("test", first)
	require.True(t, r.Login("test", second))
}

func TestRegistryLogoutChecksOwner(t *testing.T) {
	r := NewRegistry()
	owner := uuid.New()
	stale := uuid.New()

	require.True(t, r.Login("test", owner))
	r.Logout("test", stale)
	require.Equal(t, 1, r.Count(), "stale teardown must not evict the live session")

	r.Logout("test", owner)
	require.Zero(t, r.Count())
}

func TestRegistryOnline(t *testing.T) {
	r := NewRegistry()
	require.Empty(t, r.Online())
	require.True(t, r.Login("alice", uuid.New()))
	require.True(t, r.Login("bob", uuid.New()))
	require.ElementsMatch(t, []string{"alice", "bob"}, r.Online())
}
