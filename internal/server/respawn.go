package server

import (
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/protocol"
	"github.com/ErikPelli/mc1710d/internal/world"
)

// Respawn moves sess into dim and sends the clientbound Respawn packet
// followed by a fresh Player Position And Look, the sequence a real
// client expects on any dimension change (including death/respawn).
func (s *Server) Respawn(sess *player.Session, dim world.DimensionID) error {
	w, ok := s.worlds[dim]
	if !ok {
		return nil
	}
	sess.Dimension = dim
	sess.X, sess.Y, sess.Z = float64(w.SpawnX), float64(w.SpawnY), float64(w.SpawnZ)

	pkt := protocol.NewPacket(0x07,
		protocol.Int(dim),
		protocol.UnsignedByte(w.Difficulty),
		protocol.UnsignedByte(sess.GameMode),
		protocol.String(levelType),
	)
	if err := sess.Conn.Send(pkt); err != nil {
		return err
	}
	return s.sendPositionAndLook(sess)
}
