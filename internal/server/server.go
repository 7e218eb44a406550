// Package server wires the protocol, world, and player-session packages
// into a running Minecraft server: it accepts sockets, drives the 20 TPS
// tick loop, and implements the Play-phase packet handler.
package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ErikPelli/mc1710d/internal/config"
	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/network"
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/playerdata"
	"github.com/ErikPelli/mc1710d/internal/registry"
	"github.com/ErikPelli/mc1710d/internal/world"
)

const levelType = "default"

// Server is the process-wide singleton described in spec.md §3.1: a
// listening endpoint, the live connection set, the worlds by dimension
// id, the shared registries, and the tick clock.
type Server struct {
	cfg        config.Config
	registries registry.Set

	listener net.Listener

	worlds   map[world.DimensionID]*world.World
	overworld *world.World

	sessions    sync.Map // name (string) -> *player.Session
	onlineCount int64

	nextEntityID int32

	tick atomic.Int64

	closing chan struct{}
	closeOnce sync.Once

	// MechanicsHook, if set, is invoked for a world on each tick in which
	// at least one of its scheduled block updates came due, with those
	// updates; it is not called on ticks with nothing due (redstone, crop
	// growth, and similar mechanics are out of core scope, §1 — this is
	// the seam an external mechanics implementation plugs into).
	MechanicsHook func(w *world.World, due []world.ScheduledTick)
}

// New constructs a Server bound to cfg, serving dimension 0 ("overworld")
// out of cfg.WorldDir, generated by gen when a chunk is missing from disk.
func New(cfg config.Config, registries registry.Set, gen world.Generator) *Server {
	overworld := world.NewWorld(0, true, 0, 0, 64, 0, cfg.WorldDir, registries.Blocks, gen)
	s := &Server{
		cfg:        cfg,
		registries: registries,
		worlds:     map[world.DimensionID]*world.World{0: overworld},
		overworld:  overworld,
		closing:    make(chan struct{}),
	}
	return s
}

// MOTD implements network.StatusProvider.
func (s *Server) MOTD() string { return s.cfg.MOTD }

// MaxPlayers implements network.StatusProvider.
func (s *Server) MaxPlayers() int { return s.cfg.MaxPlayers }

// OnlinePlayers implements network.StatusProvider.
func (s *Server) OnlinePlayers() int { return int(atomic.LoadInt64(&s.onlineCount)) }

// World returns the world for a dimension id, or nil if none is loaded.
func (s *Server) World(dim world.DimensionID) *world.World { return s.worlds[dim] }

// Listen opens the listening socket on cfg.Bind:cfg.Port.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	logx.For("server").WithField("addr", addr).Info("listening")
	return nil
}

// Serve runs the accept loop until the listener is closed. Call it after
// Listen, typically from its own goroutine alongside RunTickLoop.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	c := network.New(conn)
	statusHandler := &network.StatusHandler{Provider: s}
	loginHandler := &network.LoginHandler{Hooks: s}
	handshake := &network.HandshakeHandler{
		StatusHandler: statusHandler,
		LoginHandler:  loginHandler,
	}
	c.SetHandler(handshake)
	c.Serve()
}

// Shutdown closes the listener and kicks every connected player. It does
// not stop a running tick loop; callers should stop that via the context
// passed to RunTickLoop.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.closing)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.sessions.Range(func(_, v interface{}) bool {
			sess := v.(*player.Session)
			if err := playerdata.Save(s.cfg.WorldDir, sess); err != nil {
				logx.For("server").WithError(err).WithField("player", sess.Name).Warn("failed to save player data")
			}
			if conn, ok := sess.Conn.(*network.Connection); ok {
				conn.Close()
			}
			return true
		})
	})
}

func (s *Server) allocateEntityID() int32 {
	return atomic.AddInt32(&s.nextEntityID, 1)
}
