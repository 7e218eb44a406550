package server

import (
	"bytes"
	"unicode/utf8"

	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/network"
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/protocol"
)

// maxKnownServerboundPlayID is the highest packet id in the 1.7.10
// serverbound Play catalog (PluginMessage, 0x17). An id beyond this is
// outside the protocol entirely and is a protocol error; an id within
// range but not handled below is parsed-and-discarded per spec.md §4.6.3.
const maxKnownServerboundPlayID = 0x17

// PlayHandler implements network.Handler for a logged-in connection's
// Play phase, dispatching the table in spec.md §4.6.3.
type PlayHandler struct {
	srv     *Server
	session *player.Session
}

func (h *PlayHandler) HandlePacket(c *network.Connection, id int32, body *bytes.Reader) error {
	sess := h.session
	log := logx.For("play").WithField("player", sess.Name)

	switch id {
	case 0x00: // KeepAlive
		var keepID protocol.VarInt
		if _, err := keepID.ReadFrom(body); err != nil {
			return err
		}
		sess.HandleKeepAliveEcho(int32(keepID))

	case 0x01: // Chat
		var msg protocol.String
		if _, err := msg.ReadFromCapped(body, 100); err != nil {
			return err
		}
		h.srv.handleChat(sess, string(msg))

	case 0x03: // Player (ground only)
		var onGround protocol.Boolean
		if _, err := onGround.ReadFrom(body); err != nil {
			return err
		}
		sess.OnGround = bool(onGround)

	case 0x04: // PlayerPosition
		var x, feetY, headY, z protocol.Double
		if _, err := x.ReadFrom(body); err != nil {
			return err
		}
		if _, err := feetY.ReadFrom(body); err != nil {
			return err
		}
		if _, err := headY.ReadFrom(body); err != nil { // legacy, discarded
			return err
		}
		if _, err := z.ReadFrom(body); err != nil {
			return err
		}
		var onGround protocol.Boolean
		if _, err := onGround.ReadFrom(body); err != nil {
			return err
		}
		sess.X, sess.Y, sess.Z = float64(x), float64(feetY), float64(z)
		sess.OnGround = bool(onGround)

	case 0x05: // PlayerLook
		var yaw, pitch protocol.Float
		if _, err := yaw.ReadFrom(body); err != nil {
			return err
		}
		if _, err := pitch.ReadFrom(body); err != nil {
			return err
		}
		var onGround protocol.Boolean
		if _, err := onGround.ReadFrom(body); err != nil {
			return err
		}
		sess.Yaw, sess.Pitch = float32(yaw), float32(pitch)
		sess.OnGround = bool(onGround)

	case 0x06: // PlayerPosAndLook
		var x, feetY, headY, z protocol.Double
		var yaw, pitch protocol.Float
		var onGround protocol.Boolean
		if _, err := x.ReadFrom(body); err != nil {
			return err
		}
		if _, err := feetY.ReadFrom(body); err != nil {
			return err
		}
		if _, err := headY.ReadFrom(body); err != nil {
			return err
		}
		if _, err := z.ReadFrom(body); err != nil {
			return err
		}
		if _, err := yaw.ReadFrom(body); err != nil {
			return err
		}
		if _, err := pitch.ReadFrom(body); err != nil {
			return err
		}
		if _, err := onGround.ReadFrom(body); err != nil {
			return err
		}
		sess.X, sess.Y, sess.Z = float64(x), float64(feetY), float64(z)
		sess.Yaw, sess.Pitch = float32(yaw), float32(pitch)
		sess.OnGround = bool(onGround)

	case 0x07: // PlayerDigging
		var status protocol.Byte
		if _, err := status.ReadFrom(body); err != nil {
			return err
		}
		var x protocol.Int
		if _, err := x.ReadFrom(body); err != nil {
			return err
		}
		var y protocol.UnsignedByte
		if _, err := y.ReadFrom(body); err != nil {
			return err
		}
		var z protocol.Int
		if _, err := z.ReadFrom(body); err != nil {
			return err
		}
		var face protocol.Byte
		if _, err := face.ReadFrom(body); err != nil {
			return err
		}
		h.srv.handleDigging(sess, int8(status), int32(x), int32(y), int32(z))

	case 0x08: // BlockPlace
		// Hand off to world mechanics; fields consumed for frame hygiene.
		var x protocol.Int
		if _, err := x.ReadFrom(body); err != nil {
			return err
		}
		var y protocol.UnsignedByte
		if _, err := y.ReadFrom(body); err != nil {
			return err
		}
		var z protocol.Int
		if _, err := z.ReadFrom(body); err != nil {
			return err
		}
		var face protocol.Byte
		if _, err := face.ReadFrom(body); err != nil {
			return err
		}

	case 0x09: // HeldItemChange
		var slot protocol.Short
		if _, err := slot.ReadFrom(body); err != nil {
			return err
		}
		if slot >= 0 && slot < 9 {
			sess.SelectedSlot = int(slot)
		}

	case 0x0B: // EntityAction
		var eid protocol.VarInt
		if _, err := eid.ReadFrom(body); err != nil {
			return err
		}
		var action protocol.UnsignedByte
		if _, err := action.ReadFrom(body); err != nil {
			return err
		}
		var jumpBoost protocol.VarInt
		if _, err := jumpBoost.ReadFrom(body); err != nil {
			return err
		}

	case 0x0D: // CloseWindow
		var windowID protocol.UnsignedByte
		if _, err := windowID.ReadFrom(body); err != nil {
			return err
		}

	case 0x13: // PlayerAbilities (client-asserted)
		var flags protocol.UnsignedByte
		if _, err := flags.ReadFrom(body); err != nil {
			return err
		}
		var flySpeed, walkSpeed protocol.Float
		if _, err := flySpeed.ReadFrom(body); err != nil {
			return err
		}
		if _, err := walkSpeed.ReadFrom(body); err != nil {
			return err
		}
		if sess.Abilities.AllowFlying {
			sess.Abilities.Flying = flags&0x02 != 0
		}

	case 0x15: // ClientSettings
		var locale protocol.String
		if _, err := locale.ReadFromCapped(body, 16); err != nil {
			return err
		}
		var viewDistance protocol.Byte
		if _, err := viewDistance.ReadFrom(body); err != nil {
			return err
		}
		var chatVisibility protocol.Byte
		if _, err := chatVisibility.ReadFrom(body); err != nil {
			return err
		}
		var chatColors protocol.Boolean
		if _, err := chatColors.ReadFrom(body); err != nil {
			return err
		}
		var skinParts protocol.UnsignedByte
		if _, err := skinParts.ReadFrom(body); err != nil {
			return err
		}
		sess.Settings = player.ClientSettings{
			Locale:         string(locale),
			ViewDistance:   int8(viewDistance),
			ChatVisibility: int8(chatVisibility),
			ChatColors:     bool(chatColors),
			SkinParts:      uint8(skinParts),
		}

	case 0x17: // PluginMessage
		var channel protocol.String
		if _, err := channel.ReadFromCapped(body, 20); err != nil {
			return err
		}
		// Remaining bytes are the channel payload; unknown channels are
		// silently ignored, and the frame boundary already bounds body.

	default:
		if id > maxKnownServerboundPlayID || id < 0 {
			log.WithField("id", id).Warn("unknown play packet id")
			return protocol.NewError(protocol.UnknownPacket, "id 0x%02x in play", id)
		}
		// Listed-but-unhandled packet (e.g. ClickWindow, TabComplete):
		// already fully framed by the reader, so discarding is a no-op.
	}

	return nil
}

// handleDigging applies the one PlayerDigging case that needs no held-item
// state: an instant break (status 0) while in creative mode, per §4.6.3.
// Survival-mode timed breaking is an out-of-scope mechanics concern (§1).
func (s *Server) handleDigging(sess *player.Session, status int8, x, y, z int32) {
	if status != 0 || sess.GameMode != 1 {
		return
	}
	w := s.worlds[sess.Dimension]
	if w == nil {
		return
	}
	if err := w.SetBlock(x, y, z, 0, 0); err != nil {
		return
	}
	s.broadcastBlockChange(x, y, z, 0, 0)
}

func (s *Server) handleChat(sess *player.Session, msg string) {
	if utf8.RuneCountInString(msg) == 0 {
		return
	}
	logx.For("chat").WithField("player", sess.Name).Info(msg)
	s.broadcastChat(sess.Name, msg)
}

func (s *Server) broadcastChat(from, msg string) {
	text := "<" + from + "> " + msg
	pkt := protocol.NewPacket(0x02, protocol.String(`{"text":"`+jsonEscapeChat(text)+`"}`), protocol.Byte(0))
	s.sessions.Range(func(_, v interface{}) bool {
		sess := v.(*player.Session)
		_ = sess.Conn.Send(pkt)
		return true
	})
}

func jsonEscapeChat(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
