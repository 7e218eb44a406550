package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ErikPelli/mc1710d/internal/logx"
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/playerdata"
)

const (
	tickRate   = 50 * time.Millisecond
	maxCatchUp = 2000 * time.Millisecond

	chunkUnloadBudget = 50

	keepAliveInterval = 300 // ticks, 15s
	keepAliveTimeout  = 600 // ticks, 30s
)

// RunTickLoop drives the 20 TPS simulation clock (spec.md §4.5) until ctx
// is cancelled: it accumulates wall-clock debt and runs whole ticks while
// debt >= one tick period, clamping any single catch-up to 2 seconds and
// logging when the server falls behind.
func (s *Server) RunTickLoop(ctx context.Context) {
	log := logx.For("tick")
	last := s.now()
	var debt time.Duration

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			if elapsed < 0 {
				elapsed = 0
			}
			if elapsed > maxCatchUp {
				skipped := int(elapsed/tickRate) - int(maxCatchUp/tickRate)
				if skipped > 0 {
					log.WithField("skipped_ticks", skipped).Warn("can't keep up, running behind")
				}
				elapsed = maxCatchUp
			}

			debt += elapsed
			for debt >= tickRate {
				s.runOneTick()
				debt -= tickRate
			}
		}
	}
}

// now is a seam so tests can avoid real sleeps if ever needed; in
// production it is just time.Now.
func (s *Server) now() time.Time { return time.Now() }

func (s *Server) runOneTick() {
	tick := s.tick.Add(1)

	for _, w := range s.worlds {
		w.Advance()
		w.Provider.TickUnloads(chunkUnloadBudget)

		due := w.DrainDueTicks(tick)
		if len(due) > 0 && s.MechanicsHook != nil {
			s.MechanicsHook(w, due)
		}
	}

	s.tickKeepAlives(tick)

	if tick%20 == 0 {
		s.broadcastTimeUpdate()
	}
}

func (s *Server) tickKeepAlives(tick int64) {
	s.sessions.Range(func(key, v interface{}) bool {
		sess := v.(*player.Session)
		name := key.(string)

		if sess.KeepAliveExpired(tick) {
			logx.For("tick").WithField("player", name).Info("keep-alive timeout")
			s.disconnectSession(name, sess, "keep-alive timeout")
			return true
		}

		if tick%keepAliveInterval == 0 {
			if err := sess.SendKeepAlive(int32(tick), tick); err != nil {
				s.disconnectSession(name, sess, "write error")
			}
		}
		return true
	})
}

func (s *Server) disconnectSession(name string, sess *player.Session, reason string) {
	if _, ok := s.sessions.LoadAndDelete(name); ok {
		atomic.AddInt64(&s.onlineCount, -1)
	}
	if err := playerdata.Save(s.cfg.WorldDir, sess); err != nil {
		logx.For("tick").WithError(err).WithField("player", name).Warn("failed to save player data")
	}
	if closer, ok := sess.Conn.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
