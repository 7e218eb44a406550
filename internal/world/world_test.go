package world

import (
	"path/filepath"
	"testing"

	"github.com/ErikPelli/mc1710d/internal/registry"
	"github.com/stretchr/testify/require"
)

func noopGenerator(cx, cz int32) *Column {
	return NewColumn(cx, cz, true)
}

func TestSetGetBlockInvariant(t *testing.T) {
	blocks := registry.NewStaticBlocks()
	dir := t.TempDir()
	w := NewWorld(0, true, 1, 0, 64, 0, dir, blocks, noopGenerator)

	for _, tc := range []struct{ x, y, z, id, meta int32 }{
		{5, 70, 3, 1, 0},
		{0, 0, 0, 3, 5},
		{-5, 128, -5, 12, 3},
		{15, 255, 15, 2, 1},
	} {
		require.NoError(t, w.SetBlock(tc.x, tc.y, tc.z, int(tc.id), int(tc.meta)))
		gotID, gotMeta := w.GetBlock(tc.x, tc.y, tc.z)
		require.Equal(t, int(tc.id), gotID)
		require.Equal(t, int(tc.meta), gotMeta)
	}
}

func TestGetBlockOutOfRangeIsAir(t *testing.T) {
	blocks := registry.NewStaticBlocks()
	w := NewWorld(0, true, 1, 0, 64, 0, t.TempDir(), blocks, noopGenerator)
	id, meta := w.GetBlock(0, -1, 0)
	require.Equal(t, 0, id)
	require.Equal(t, 0, meta)
	id, meta = w.GetBlock(0, 256, 0)
	require.Equal(t, 0, id)
	require.Equal(t, 0, meta)
}

func TestChunkSaveReload(t *testing.T) {
	blocks := registry.NewStaticBlocks()
	dir := t.TempDir()
	w := NewWorld(0, true, 42, 0, 64, 0, dir, blocks, noopGenerator)

	require.NoError(t, w.SetBlock(5, 70, 3, 1, 0))
	c, _ := w.Provider.GetLoaded(0, 0)
	require.NotNil(t, c)
	require.NoError(t, w.Provider.Save(c))
	require.NoError(t, w.Provider.TickUnloads(10))

	// Force unload beyond spawn anchor distance first so the eviction
	// actually drops it; spawn chunk (0,0) is anchored, so simulate a
	// far chunk instead for the eviction half of the scenario.
	require.NoError(t, w.SetBlock(5000, 70, 3, 7, 2))
	farCX, farCZ := worldToChunk(5000), worldToChunk(3)
	farCol, _ := w.Provider.GetLoaded(farCX, farCZ)
	require.NotNil(t, farCol)
	w.Provider.Drop(farCX, farCZ)
	require.NoError(t, w.Provider.TickUnloads(10))
	_, stillLoaded := w.Provider.GetLoaded(farCX, farCZ)
	require.False(t, stillLoaded)

	// Reload from disk via a fresh provider pointed at the same dir.
	w2 := NewWorld(0, true, 42, 0, 64, 0, dir, blocks, noopGenerator)
	reloaded, err := w2.Provider.Load(farCX, farCZ)
	require.NoError(t, err)
	id, meta := reloaded.GetBlock(int(5000-farCX*16), 70, 3)
	require.Equal(t, 7, id)
	require.Equal(t, 2, meta)
}

func TestSpawnAnchorExemptFromDrop(t *testing.T) {
	blocks := registry.NewStaticBlocks()
	p := NewChunkProvider(filepath.Join(t.TempDir()), true, blocks, noopGenerator, 0, 0)
	_, err := p.Load(0, 0)
	require.NoError(t, err)
	p.Drop(0, 0)
	require.NoError(t, p.TickUnloads(10))
	_, ok := p.GetLoaded(0, 0)
	require.True(t, ok, "spawn-anchor chunk must not be evicted")
}

func TestEncodeDecodeColumnRoundTrip(t *testing.T) {
	blocks := registry.NewStaticBlocks()
	c := NewColumn(2, -3, true)
	c.SetBlock(1, 70, 2, 1, 5, blocks)
	c.SetBlock(15, 0, 15, 12, 0, blocks)
	c.TerrainPopulated = true
	c.LightPopulated = true
	c.InhabitedTicks = 1234
	c.BiomeMap[0] = 4

	doc := c.EncodeNBT()
	decoded, err := DecodeColumn(doc, true, blocks)
	require.NoError(t, err)

	require.Equal(t, c.CX, decoded.CX)
	require.Equal(t, c.CZ, decoded.CZ)
	require.Equal(t, c.TerrainPopulated, decoded.TerrainPopulated)
	require.Equal(t, c.LightPopulated, decoded.LightPopulated)
	require.Equal(t, c.InhabitedTicks, decoded.InhabitedTicks)
	require.Equal(t, c.BiomeMap, decoded.BiomeMap)
	require.Equal(t, c.HeightMap, decoded.HeightMap)

	gotID, gotMeta := decoded.GetBlock(1, 70, 2)
	require.Equal(t, 1, gotID)
	require.Equal(t, 5, gotMeta)
	gotID, gotMeta = decoded.GetBlock(15, 0, 15)
	require.Equal(t, 12, gotID)
	require.Equal(t, 0, gotMeta)
}

func TestEmptySectionDroppedOnSave(t *testing.T) {
	blocks := registry.NewStaticBlocks()
	// No sky: once the block is cleared all four arrays are zero. (With sky,
	// the full sky light of a new section keeps it from being empty.)
	c := NewColumn(0, 0, false)
	c.SetBlock(0, 0, 0, 1, 0, blocks)
	c.SetBlock(0, 0, 0, 0, 0, blocks) // set back to air: section should drop
	require.Nil(t, c.Sections[0])
}

// TestSectionWithLeftoverMetaIsNotEmpty covers the §9 redesign flag
// directly: an all-air section with a stray non-zero metadata nibble
// must not be reported Empty, even though nonAirCount is zero.
func TestSectionWithLeftoverMetaIsNotEmpty(t *testing.T) {
	s := NewSection(0, false)
	require.True(t, s.Empty())

	nibbleSet(s.Meta[:], 0, 3)
	require.False(t, s.Empty())
}
