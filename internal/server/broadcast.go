package server

import (
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/protocol"
)

// broadcastTimeUpdate sends the overworld clock to every connected
// player, once every 20 ticks per spec.md §4.5.
func (s *Server) broadcastTimeUpdate() {
	pkt := protocol.NewPacket(0x03,
		protocol.Long(s.overworld.TotalWorldTime),
		protocol.Long(s.overworld.TimeOfDay),
	)
	s.sessions.Range(func(_, v interface{}) bool {
		sess := v.(*player.Session)
		_ = sess.Conn.Send(pkt)
		return true
	})
}

// broadcastBlockChange notifies every connected player of a single block
// update (e.g. from a digging/placement mechanic hook), per spec.md §4.5.
func (s *Server) broadcastBlockChange(x, y, z int32, blockID, meta int) {
	pkt := protocol.NewPacket(0x23,
		protocol.Int(x),
		protocol.UnsignedByte(uint8(y)),
		protocol.Int(z),
		protocol.VarInt(blockID),
		protocol.UnsignedByte(uint8(meta)),
	)
	s.sessions.Range(func(_, v interface{}) bool {
		sess := v.(*player.Session)
		_ = sess.Conn.Send(pkt)
		return true
	})
}
