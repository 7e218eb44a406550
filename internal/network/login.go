package network

import (
	"bytes"

	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/protocol"
	"github.com/google/uuid"
)

// LoginHooks lets a higher-level package (which owns worlds, registries,
// and player sessions) react to a completed login handshake without
// network importing any of that. DeriveID computes the stable player id
// a LoginSuccess should carry (offline-mode: name-based UUID, §4.3);
// OnLoginSuccess installs the Play handler on c and runs the join
// sequence before returning.
type LoginHooks interface {
	DeriveID(name string) uuid.UUID
	OnLoginSuccess(c *Connection, name string, id uuid.UUID) error
}

// LoginHandler accepts LoginStart, derives the offline-mode player id,
// answers with LoginSuccess, and hands off to Hooks to enter Play.
type LoginHandler struct {
	Hooks LoginHooks
}

func (h *LoginHandler) HandlePacket(c *Connection, id int32, body *bytes.Reader) error {
	log := logx.For("login").WithField("remote", c.RemoteAddr())

	if id != IDLoginStart {
		return protocol.NewError(protocol.UnknownPacket, "id 0x%02x in login", id)
	}

	var name protocol.String
	if _, err := name.ReadFromCapped(body, 16); err != nil {
		return err
	}

	playerID := h.Hooks.DeriveID(string(name))
	log.WithField("name", string(name)).WithField("id", playerID).Info("player logging in")

	success := protocol.NewPacket(IDLoginSuccess,
		protocol.String(playerID.String()),
		name,
	)
	if err := c.Send(success); err != nil {
		return err
	}
	c.SetPhase(PhasePlay)

	return h.Hooks.OnLoginSuccess(c, string(name), playerID)
}
