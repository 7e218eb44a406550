package server

import (
	"net"
	"testing"

	"github.com/ErikPelli/mc1710d/internal/network"
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/playerdata"
	"github.com/stretchr/testify/require"
)

// TestOnLoginSuccessAppliesSavedPlayerData covers the SPEC_FULL.md §C
// mandatory player-data feature end to end: a session disconnected at a
// non-spawn position is restored to that position on the next login.
func TestOnLoginSuccessAppliesSavedPlayerData(t *testing.T) {
	srv := newTestServer(t)

	sender := &fakeSender{}
	sess := player.New(1, "Notch", sender)
	sess.X, sess.Y, sess.Z = 100, 80, -50
	sess.Health = 13

	require.NoError(t, playerdata.Save(srv.cfg.WorldDir, sess))

	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { clientSide.Close() })
	conn := network.New(serverSide)

	require.NoError(t, srv.OnLoginSuccess(conn, "Notch", sess.StableID))

	loaded, ok := srv.sessions.Load("Notch")
	require.True(t, ok)
	joined := loaded.(*player.Session)
	require.Equal(t, 100.0, joined.X)
	require.Equal(t, 80.0, joined.Y)
	require.Equal(t, -50.0, joined.Z)
	require.Equal(t, float32(13), joined.Health)
}

// TestDisconnectSessionSavesPlayerData covers the save half of the same
// feature: disconnecting a session persists its position for later reload.
func TestDisconnectSessionSavesPlayerData(t *testing.T) {
	srv := newTestServer(t)
	sender := &fakeSender{}
	sess := player.New(2, "Alex", sender)
	sess.X, sess.Y, sess.Z = 7, 65, 7
	srv.sessions.Store("Alex", sess)
	srv.onlineCount = 1

	srv.disconnectSession("Alex", sess, "test")

	reloaded := player.New(3, "Alex", sender)
	found, err := playerdata.Load(srv.cfg.WorldDir, reloaded)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 7.0, reloaded.X)
	require.Equal(t, 65.0, reloaded.Y)
}
