// Package player implements the per-player session: identity, position,
// visible state, and keep-alive bookkeeping. A session is created on the
// Login->Play transition and destroyed on disconnect or kick.
package player

import (
	"crypto/md5"
	"fmt"

	"github.com/ErikPelli/mc1710d/internal/protocol"
	"github.com/ErikPelli/mc1710d/internal/registry"
	"github.com/ErikPelli/mc1710d/internal/world"
	"github.com/google/uuid"
)

// Sender is the minimal surface a session needs from its connection: an
// ordered, whole-frame outbound write. Implemented by network.Connection;
// declared here to avoid an import cycle.
type Sender interface {
	Send(pkt *protocol.Packet) error
}

// ClientSettings records the locale/view-distance/chat preferences a
// client announces via the ClientSettings packet (§4.6.3, id 0x15).
type ClientSettings struct {
	Locale          string
	ViewDistance    int8
	ChatVisibility  int8
	ChatColors      bool
	SkinParts       uint8
}

// Abilities mirrors the wire Player Abilities flags.
type Abilities struct {
	Invulnerable bool
	Flying       bool
	AllowFlying  bool
	Creative     bool
	FlySpeed     float32
	WalkSpeed    float32
}

// Session is one connected player's authoritative, server-visible state.
type Session struct {
	EntityID int32
	Name     string
	StableID uuid.UUID

	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool

	Health     float32
	Food       int
	Saturation float32
	Experience float32
	GameMode   uint8
	Dimension  world.DimensionID

	Inventory    [45]registry.ItemStack
	SelectedSlot int

	Abilities Abilities
	Settings  ClientSettings

	Conn Sender

	lastKeepAliveID      int32
	ticksSinceKeepAlive  int64
	lastKeepAliveSentAt  int64
	awaitingKeepAliveAck bool
}

// OfflineUUID derives the stable, deterministic player id used when
// running without session authentication (spec.md §1, §4.3): a
// name-based (version 3) UUID of "OfflinePlayer:<name>".
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0F) | 0x30 // version 3
	sum[8] = (sum[8] & 0x3F) | 0x80 // IETF variant
	id, _ := uuid.FromBytes(sum[:])
	return id
}

// New creates a session for name, deriving its stable id.
func New(entityID int32, name string, conn Sender) *Session {
	return &Session{
		EntityID: entityID,
		Name:     name,
		StableID: OfflineUUID(name),
		Conn:     conn,
		GameMode: 0,
		Health:   20,
		Food:     20,
	}
}

// SendKeepAlive issues a fresh keep-alive id, recording when it was sent
// so the caller can enforce the 600-tick timeout (§4.6.2).
func (s *Session) SendKeepAlive(id int32, atTick int64) error {
	s.lastKeepAliveID = id
	s.lastKeepAliveSentAt = atTick
	s.awaitingKeepAliveAck = true
	pkt := protocol.NewPacket(0x00, protocol.VarInt(id))
	return s.Conn.Send(pkt)
}

// HandleKeepAliveEcho processes a client KeepAlive reply. A non-matching
// id is ignored, per §4.6.2.
func (s *Session) HandleKeepAliveEcho(id int32) {
	if id == s.lastKeepAliveID {
		s.awaitingKeepAliveAck = false
	}
}

// KeepAliveExpired reports whether the outstanding keep-alive (if any)
// has gone unanswered for 600 ticks (30s at 20 TPS).
func (s *Session) KeepAliveExpired(currentTick int64) bool {
	return s.awaitingKeepAliveAck && currentTick-s.lastKeepAliveSentAt >= 600
}

// String implements fmt.Stringer for log lines.
func (s *Session) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.StableID)
}
