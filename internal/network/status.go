package network

import (
	"bytes"
	"encoding/json"

	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/protocol"
)

// StatusProvider supplies the live values shown in the server list ping,
// per spec.md §4.3.
type StatusProvider interface {
	MOTD() string
	MaxPlayers() int
	OnlinePlayers() int
}

// StatusHandler answers the two Status-phase packets (Request, Ping) and
// closes the connection once it has answered a Ping, matching the
// one-shot nature of a server list refresh.
type StatusHandler struct {
	Provider StatusProvider
}

type statusVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type statusPlayers struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

type statusDescription struct {
	Text string `json:"text"`
}

type statusResponse struct {
	Version     statusVersion     `json:"version"`
	Players     statusPlayers     `json:"players"`
	Description statusDescription `json:"description"`
}

func (h *StatusHandler) HandlePacket(c *Connection, id int32, body *bytes.Reader) error {
	log := logx.For("status").WithField("remote", c.RemoteAddr())

	switch id {
	case IDStatusRequest:
		resp := statusResponse{
			Version:     statusVersion{Name: "1.7.10", Protocol: ProtocolVersion},
			Players:     statusPlayers{Max: h.Provider.MaxPlayers(), Online: h.Provider.OnlinePlayers()},
			Description: statusDescription{Text: h.Provider.MOTD()},
		}
		encoded, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		pkt := protocol.NewPacket(IDStatusResponse, protocol.String(encoded))
		return c.Send(pkt)

	case IDStatusPing:
		var payload protocol.Long
		if _, err := payload.ReadFrom(body); err != nil {
			return err
		}
		pkt := protocol.NewPacket(IDStatusPong, payload)
		if err := c.Send(pkt); err != nil {
			return err
		}
		log.Debug("answered ping, closing status connection")
		c.CloseAfterDrain()
		return nil

	default:
		return protocol.NewError(protocol.UnknownPacket, "id 0x%02x in status", id)
	}
}
