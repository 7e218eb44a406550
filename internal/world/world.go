package world

import (
	"github.com/ErikPelli/mc1710d/internal/registry"
)

// DimensionID identifies a distinct world instance; 0 is the overworld.
type DimensionID int8

// ScheduledTick is a block update due at or after DueTick, queued by
// mechanics (e.g. redstone, crop growth) and drained by the tick loop.
// The update itself is a mechanics concern; the queue is core plumbing.
type ScheduledTick struct {
	X, Y, Z int
	DueTick int64
}

// World is one dimension: its chunk provider, clock, and scheduled-tick
// queue. Block access is in signed world coordinates.
type World struct {
	Dimension  DimensionID
	HasSky     bool
	Seed       int64
	SpawnX     int32
	SpawnY     int32
	SpawnZ     int32
	Difficulty uint8
	Hardcore   bool

	Provider *ChunkProvider
	blocks   registry.Block

	TotalWorldTime int64
	TimeOfDay      int64

	scheduled []ScheduledTick
}

// NewWorld constructs a World. gen is the external chunk generator.
func NewWorld(dim DimensionID, hasSky bool, seed int64, spawnX, spawnY, spawnZ int32, worldDir string, blocks registry.Block, gen Generator) *World {
	w := &World{
		Dimension: dim,
		HasSky:    hasSky,
		Seed:      seed,
		SpawnX:    spawnX,
		SpawnY:    spawnY,
		SpawnZ:    spawnZ,
		blocks:    blocks,
	}
	w.Provider = NewChunkProvider(worldDir, hasSky, blocks, gen, spawnX>>4, spawnZ>>4)
	return w
}

func worldToChunk(v int32) int32 {
	if v < 0 {
		return (v+1)/16 - 1
	}
	return v / 16
}

func floorMod16(v int32) int {
	m := int(v % 16)
	if m < 0 {
		m += 16
	}
	return m
}

// GetBlock returns air if y is out of [0,256) or the chunk is unloaded,
// per §4.4.2.
func (w *World) GetBlock(x, y, z int32) (id, meta int) {
	if y < 0 || y >= 256 {
		return 0, 0
	}
	cx, cz := worldToChunk(x), worldToChunk(z)
	c, ok := w.Provider.GetLoaded(cx, cz)
	if !ok {
		return 0, 0
	}
	return c.GetBlock(floorMod16(x), int(y), floorMod16(z))
}

// SetBlock writes a block at world coordinates, loading the chunk if
// necessary. It is a no-op if y is out of range.
func (w *World) SetBlock(x, y, z int32, id, meta int) error {
	if y < 0 || y >= 256 {
		return nil
	}
	cx, cz := worldToChunk(x), worldToChunk(z)
	c, err := w.Provider.Load(cx, cz)
	if err != nil {
		return err
	}
	c.SetBlock(floorMod16(x), int(y), floorMod16(z), id, meta, w.blocks)
	return nil
}

// ScheduleTick enqueues a block update to fire at or after the given
// absolute tick.
func (w *World) ScheduleTick(x, y, z int, dueTick int64) {
	w.scheduled = append(w.scheduled, ScheduledTick{X: x, Y: y, Z: z, DueTick: dueTick})
}

// DrainDueTicks removes and returns every scheduled tick whose DueTick
// has arrived, leaving the rest queued.
func (w *World) DrainDueTicks(now int64) []ScheduledTick {
	var due []ScheduledTick
	var remaining []ScheduledTick
	for _, s := range w.scheduled {
		if s.DueTick <= now {
			due = append(due, s)
		} else {
			remaining = append(remaining, s)
		}
	}
	w.scheduled = remaining
	return due
}

// Advance moves the world clock forward by one tick, per §4.5: total
// time increments unconditionally, time-of-day wraps at 24000.
func (w *World) Advance() {
	w.TotalWorldTime++
	w.TimeOfDay = w.TotalWorldTime % 24000
}
