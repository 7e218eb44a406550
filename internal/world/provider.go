package world

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ErikPelli/mc1710d/internal/nbt"
	"github.com/ErikPelli/mc1710d/internal/region"
	"github.com/ErikPelli/mc1710d/internal/registry"
)

// Generator produces a freshly-generated column for the given chunk
// coordinates. Terrain/cave/ore/structure generation is out of core
// scope (spec.md §1); this is the seam the external generator plugs into.
type Generator func(cx, cz int32) *Column

const spawnAnchorChebyshev = 12

type chunkKey struct{ cx, cz int32 }

// ChunkProvider owns the in-memory chunk cache, the on-disk region file
// pool, and the chunk generator. It implements the cache/load/generate
// responsibilities of §4.4.1 with a multi-reader/single-writer discipline
// over the chunk map.
type ChunkProvider struct {
	worldDir string
	hasSky   bool
	blocks   registry.Block
	gen      Generator
	spawnCX  int32
	spawnCZ  int32

	mapMu sync.RWMutex
	cols  map[chunkKey]*Column

	regionMu sync.Mutex
	regions  map[uint64]*region.RegionFile

	unloadMu sync.Mutex
	unloadQ  []chunkKey
	queued   map[chunkKey]bool
}

// NewChunkProvider builds a provider rooted at worldDir (a "region"
// subdirectory is created/used beneath it, per §6's filename convention).
func NewChunkProvider(worldDir string, hasSky bool, blocks registry.Block, gen Generator, spawnCX, spawnCZ int32) *ChunkProvider {
	return &ChunkProvider{
		worldDir: worldDir,
		hasSky:   hasSky,
		blocks:   blocks,
		gen:      gen,
		spawnCX:  spawnCX,
		spawnCZ:  spawnCZ,
		cols:     make(map[chunkKey]*Column),
		regions:  make(map[uint64]*region.RegionFile),
		queued:   make(map[chunkKey]bool),
	}
}

// GetLoaded is a lookup-only read: no I/O, no generation.
func (p *ChunkProvider) GetLoaded(cx, cz int32) (*Column, bool) {
	p.mapMu.RLock()
	defer p.mapMu.RUnlock()
	c, ok := p.cols[chunkKey{cx, cz}]
	return c, ok
}

// Load returns the chunk at (cx, cz), loading it from disk or generating
// it if it is not already cached. A chunk found via Load is removed from
// the unload queue, undoing any pending Drop.
func (p *ChunkProvider) Load(cx, cz int32) (*Column, error) {
	key := chunkKey{cx, cz}

	p.mapMu.RLock()
	c, ok := p.cols[key]
	p.mapMu.RUnlock()
	if ok {
		p.unqueue(key)
		return c, nil
	}

	// Miss: do disk I/O / generation without holding the map lock, then
	// upgrade to exclusive only to insert.
	c, err := p.loadFromDisk(cx, cz)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = p.gen(cx, cz)
		if c == nil {
			c = NewColumn(cx, cz, p.hasSky)
		}
	}

	p.mapMu.Lock()
	if existing, ok := p.cols[key]; ok {
		// Lost a race with a concurrent Load; keep the winner.
		p.mapMu.Unlock()
		p.unqueue(key)
		return existing, nil
	}
	p.cols[key] = c
	p.mapMu.Unlock()
	p.unqueue(key)
	return c, nil
}

func (p *ChunkProvider) unqueue(key chunkKey) {
	p.unloadMu.Lock()
	defer p.unloadMu.Unlock()
	delete(p.queued, key)
}

// Drop enqueues (cx, cz) for eviction. Spawn-anchor chunks are exempt and
// silently refused.
func (p *ChunkProvider) Drop(cx, cz int32) {
	if chebyshev(cx-p.spawnCX, cz-p.spawnCZ) <= spawnAnchorChebyshev {
		return
	}
	key := chunkKey{cx, cz}
	p.unloadMu.Lock()
	defer p.unloadMu.Unlock()
	if !p.queued[key] {
		p.queued[key] = true
		p.unloadQ = append(p.unloadQ, key)
	}
}

func chebyshev(dx, dz int32) int32 {
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}

// TickUnloads processes up to budget queued evictions, writing back any
// dirty column before removing it from the cache. Eviction ordering
// among queued entries is unspecified beyond fairness (§9).
func (p *ChunkProvider) TickUnloads(budget int) error {
	p.unloadMu.Lock()
	n := budget
	if n > len(p.unloadQ) {
		n = len(p.unloadQ)
	}
	batch := append([]chunkKey(nil), p.unloadQ[:n]...)
	p.unloadQ = p.unloadQ[n:]
	for _, k := range batch {
		delete(p.queued, k)
	}
	p.unloadMu.Unlock()

	// Group by region before saving: evictions from the same region file
	// are written back consecutively so the region's mutex isn't
	// repeatedly released and reacquired against unrelated regions.
	byRegion := make(map[uint64][]chunkKey, len(batch))
	var order []uint64
	for _, k := range batch {
		rk := regionKey(k.cx>>5, k.cz>>5)
		if _, seen := byRegion[rk]; !seen {
			order = append(order, rk)
		}
		byRegion[rk] = append(byRegion[rk], k)
	}

	p.mapMu.Lock()
	defer p.mapMu.Unlock()
	for _, rk := range order {
		for _, k := range byRegion[rk] {
			c, ok := p.cols[k]
			if !ok {
				continue
			}
			if c.Dirty() {
				if err := p.saveLocked(c); err != nil {
					return err
				}
			}
			delete(p.cols, k)
		}
	}
	return nil
}

// Save persists a single loaded column immediately, regardless of its
// position in the unload queue.
func (p *ChunkProvider) Save(c *Column) error {
	p.mapMu.Lock()
	defer p.mapMu.Unlock()
	return p.saveLocked(c)
}

func (p *ChunkProvider) saveLocked(c *Column) error {
	rx, rz := c.CX>>5, c.CZ>>5
	rf, err := p.regionFile(rx, rz)
	if err != nil {
		return err
	}
	lx, lz := int(c.CX&31), int(c.CZ&31)

	var buf bytes.Buffer
	doc := c.EncodeNBT()
	if err := nbt.WriteNamed(&buf, "", doc); err != nil {
		return err
	}
	if err := rf.WriteChunk(lx, lz, buf.Bytes()); err != nil {
		return err
	}
	c.ClearDirty()
	return nil
}

func (p *ChunkProvider) loadFromDisk(cx, cz int32) (*Column, error) {
	rx, rz := cx>>5, cz>>5
	rf, err := p.regionFile(rx, rz)
	if err != nil {
		return nil, err
	}
	lx, lz := int(cx&31), int(cz&31)

	data, ok, err := rf.ReadChunk(lx, lz)
	if err != nil {
		// A corrupt region entry falls back to generation, per §4.4.1.
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	_, doc, err := nbt.ReadNamed(bytes.NewReader(data))
	if err != nil {
		return nil, nil
	}
	return DecodeColumn(doc, p.hasSky, p.blocks)
}

func (p *ChunkProvider) regionFile(rx, rz int32) (*region.RegionFile, error) {
	key := regionKey(rx, rz)

	p.regionMu.Lock()
	defer p.regionMu.Unlock()
	if rf, ok := p.regions[key]; ok {
		return rf, nil
	}
	path := filepath.Join(p.worldDir, "region", fmt.Sprintf("r.%d.%d.mca", rx, rz))
	rf, err := region.Open(path)
	if err != nil {
		return nil, err
	}
	p.regions[key] = rf
	return rf, nil
}

func regionKey(rx, rz int32) uint64 {
	return uint64(uint32(rx))<<32 | uint64(uint32(rz))
}

// CloseAll closes every open region file.
func (p *ChunkProvider) CloseAll() error {
	p.regionMu.Lock()
	defer p.regionMu.Unlock()
	var firstErr error
	for _, rf := range p.regions {
		if err := rf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
