package server

import (
	"testing"

	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/stretchr/testify/require"
)

func TestRespawnMovesSessionAndSendsPackets(t *testing.T) {
	srv := newTestServer(t)
	sender := &fakeSender{}
	sess := player.New(1, "Notch", sender)
	sess.Dimension = 0

	require.NoError(t, srv.Respawn(sess, 0))

	require.Len(t, sender.sent, 2)
	require.EqualValues(t, 0x07, sender.sent[0].ID)
	require.EqualValues(t, 0x08, sender.sent[1].ID)
	require.Equal(t, float64(srv.overworld.SpawnX), sess.X)
}

func TestRespawnToUnknownDimensionIsNoop(t *testing.T) {
	srv := newTestServer(t)
	sender := &fakeSender{}
	sess := player.New(1, "Notch", sender)

	require.NoError(t, srv.Respawn(sess, 5))
	require.Empty(t, sender.sent)
}
