package network

import (
	"bytes"

	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/protocol"
)

// HandshakeHandler accepts exactly one packet (the Handshake) and routes
// the connection into Status or Login, per spec.md §4.3.
type HandshakeHandler struct {
	StatusHandler Handler
	LoginHandler  Handler
}

func disconnectJSON(text string) string {
	return `{"text":"` + jsonEscape(text) + `"}`
}

func jsonEscape(s string) string {
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

func (h *HandshakeHandler) HandlePacket(c *Connection, id int32, body *bytes.Reader) error {
	log := logx.For("handshake").WithField("remote", c.RemoteAddr())

	if id != IDHandshake {
		log.WithField("id", id).Warn("unexpected packet in handshake phase")
		return protocol.NewError(protocol.UnknownPacket, "id 0x%02x in handshake", id)
	}

	var ver protocol.VarInt
	if _, err := ver.ReadFrom(body); err != nil {
		return err
	}
	var addr protocol.String
	if _, err := addr.ReadFromCapped(body, 255); err != nil {
		return err
	}
	var port protocol.UnsignedShort
	if _, err := port.ReadFrom(body); err != nil {
		return err
	}
	var next protocol.VarInt
	if _, err := next.ReadFrom(body); err != nil {
		return err
	}

	if int32(ver) != ProtocolVersion {
		reason := "Outdated client! Please use 1.7.10"
		if int32(ver) > ProtocolVersion {
			reason = "Outdated server! I'm still on 1.7.10"
		}
		pkt := protocol.NewPacket(IDLoginDisconnect, protocol.String(disconnectJSON(reason)))
		log.WithField("version", ver).Info("rejecting mismatched protocol version")
		c.Disconnect(pkt, reason)
		return protocol.NewError(protocol.VersionMismatch, reason)
	}

	switch next {
	case 1:
		c.SetHandler(h.StatusHandler)
		c.SetPhase(PhaseStatus)
	case 2:
		c.SetHandler(h.LoginHandler)
		c.SetPhase(PhaseLogin)
	default:
		log.WithField("next", next).Warn("invalid next-state in handshake")
		return protocol.NewError(protocol.Malformed, "invalid next state %d", next)
	}
	return nil
}
