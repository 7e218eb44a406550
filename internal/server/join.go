package server

import (
	"bytes"
	"sync/atomic"

	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/network"
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/playerdata"
	"github.com/ErikPelli/mc1710d/internal/protocol"
	"github.com/ErikPelli/mc1710d/internal/world"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zlib"
)

const viewRadius = 7 // chunks, Chebyshev

// DeriveID implements network.LoginHooks: it's the only point where the
// network package learns a player's stable id, keeping network free of
// any import on internal/player.
func (s *Server) DeriveID(name string) uuid.UUID {
	return player.OfflineUUID(name)
}

// OnLoginSuccess implements network.LoginHooks: it builds the session,
// installs the Play handler, and runs the join sequence of spec.md §4.6.1.
func (s *Server) OnLoginSuccess(c *network.Connection, name string, id uuid.UUID) error {
	log := logx.For("join").WithField("name", name).WithField("remote", c.RemoteAddr())

	sess := player.New(s.allocateEntityID(), name, c)
	sess.Dimension = s.overworld.Dimension
	sess.X, sess.Y, sess.Z = float64(s.overworld.SpawnX), float64(s.overworld.SpawnY), float64(s.overworld.SpawnZ)
	sess.GameMode = 0
	sess.Abilities = player.Abilities{FlySpeed: 0.05, WalkSpeed: 0.1}

	if found, err := playerdata.Load(s.cfg.WorldDir, sess); err != nil {
		log.WithError(err).Warn("failed to load player data, using defaults")
	} else if found {
		log.Info("loaded saved player data")
	}

	if prior, ok := s.sessions.LoadAndDelete(name); ok {
		if prevConn, ok := prior.(*player.Session).Conn.(*network.Connection); ok {
			prevConn.Close()
		}
	} else {
		atomic.AddInt64(&s.onlineCount, 1)
	}
	s.sessions.Store(name, sess)

	c.SetHandler(&PlayHandler{srv: s, session: sess})

	if err := s.sendJoinGame(sess); err != nil {
		return err
	}
	if err := s.sendSpawnPosition(sess); err != nil {
		return err
	}
	if err := s.sendPlayerAbilities(sess); err != nil {
		return err
	}
	if err := s.sendPositionAndLook(sess); err != nil {
		return err
	}
	if err := s.sendInitialChunks(sess); err != nil {
		return err
	}

	log.WithField("id", id).Info("player joined")
	return nil
}

func (s *Server) sendJoinGame(sess *player.Session) error {
	pkt := protocol.NewPacket(0x01,
		protocol.Int(sess.EntityID),
		protocol.UnsignedByte(sess.GameMode),
		protocol.Byte(sess.Dimension),
		protocol.UnsignedByte(s.overworld.Difficulty),
		protocol.UnsignedByte(s.cfg.MaxPlayers),
		protocol.String(levelType),
	)
	return sess.Conn.Send(pkt)
}

func (s *Server) sendSpawnPosition(sess *player.Session) error {
	pkt := protocol.NewPacket(0x05,
		protocol.Int(s.overworld.SpawnX),
		protocol.Int(s.overworld.SpawnY),
		protocol.Int(s.overworld.SpawnZ),
	)
	return sess.Conn.Send(pkt)
}

func abilityFlags(a player.Abilities) byte {
	var f byte
	if a.Invulnerable {
		f |= 0x01
	}
	if a.Flying {
		f |= 0x02
	}
	if a.AllowFlying {
		f |= 0x04
	}
	if a.Creative {
		f |= 0x08
	}
	return f
}

func (s *Server) sendPlayerAbilities(sess *player.Session) error {
	pkt := protocol.NewPacket(0x39,
		protocol.UnsignedByte(abilityFlags(sess.Abilities)),
		protocol.Float(sess.Abilities.FlySpeed),
		protocol.Float(sess.Abilities.WalkSpeed),
	)
	return sess.Conn.Send(pkt)
}

func (s *Server) sendPositionAndLook(sess *player.Session) error {
	pkt := protocol.NewPacket(0x08,
		protocol.Double(sess.X),
		protocol.Double(sess.Y),
		protocol.Double(sess.Z),
		protocol.Float(sess.Yaw),
		protocol.Float(sess.Pitch),
		protocol.Boolean(sess.OnGround),
	)
	return sess.Conn.Send(pkt)
}

// sendInitialChunks delivers every chunk within viewRadius (Chebyshev) of
// the player's chunk as individual, zlib-compressed chunk-data packets.
func (s *Server) sendInitialChunks(sess *player.Session) error {
	cx, cz := int32(sess.X)>>4, int32(sess.Z)>>4
	for dz := -viewRadius; dz <= viewRadius; dz++ {
		for dx := -viewRadius; dx <= viewRadius; dx++ {
			col, err := s.overworld.Provider.Load(cx+int32(dx), cz+int32(dz))
			if err != nil {
				return err
			}
			if err := s.sendChunk(sess, col, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) sendChunk(sess *player.Session, col *world.Column, full bool) error {
	primary, add, raw := col.EncodeChunkData(full)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	pkt := protocol.NewPacket(0x21,
		protocol.Int(col.CX),
		protocol.Int(col.CZ),
		protocol.Boolean(full),
		protocol.UnsignedShort(primary),
		protocol.UnsignedShort(add),
		protocol.VarInt(compressed.Len()),
	)
	pkt.Write(compressed.Bytes())
	return sess.Conn.Send(pkt)
}
