package world

import (
	"fmt"

	"github.com/ErikPelli/mc1710d/internal/nbt"
)

// EncodeNBT builds the persisted compound for the column, per §4.4.4:
// a root "Level" compound carrying position, flags, sections, biomes,
// and the opaque entity/tile-entity subtrees.
func (c *Column) EncodeNBT() nbt.Tag {
	var sections []nbt.Tag
	for _, s := range c.Sections {
		if s == nil || s.Empty() {
			continue
		}
		children := []nbt.NamedTag{
			{Name: "Y", Tag: nbt.Byte(s.Y)},
			{Name: "Blocks", Tag: nbt.ByteArray(append([]byte(nil), s.BlockLow[:]...))},
			{Name: "Data", Tag: nbt.ByteArray(append([]byte(nil), s.Meta[:]...))},
			{Name: "BlockLight", Tag: nbt.ByteArray(append([]byte(nil), s.BlockLight[:]...))},
		}
		if s.BlockHigh != nil {
			children = append(children, nbt.NamedTag{Name: "Add", Tag: nbt.ByteArray(append([]byte(nil), s.BlockHigh...))})
		}
		if s.SkyLight != nil {
			children = append(children, nbt.NamedTag{Name: "SkyLight", Tag: nbt.ByteArray(append([]byte(nil), s.SkyLight...))})
		}
		sections = append(sections, nbt.Compound(children...))
	}

	heightMap := make([]int32, 256)
	copy(heightMap, c.HeightMap[:])

	flag := func(b bool) int8 {
		if b {
			return 1
		}
		return 0
	}

	level := nbt.Compound(
		nbt.NamedTag{Name: "xPos", Tag: nbt.Int(c.CX)},
		nbt.NamedTag{Name: "zPos", Tag: nbt.Int(c.CZ)},
		nbt.NamedTag{Name: "LastUpdate", Tag: nbt.Long(c.LastUpdate)},
		nbt.NamedTag{Name: "HeightMap", Tag: nbt.IntArray(heightMap)},
		nbt.NamedTag{Name: "TerrainPopulated", Tag: nbt.Byte(flag(c.TerrainPopulated))},
		nbt.NamedTag{Name: "LightPopulated", Tag: nbt.Byte(flag(c.LightPopulated))},
		nbt.NamedTag{Name: "InhabitedTime", Tag: nbt.Long(c.InhabitedTicks)},
		nbt.NamedTag{Name: "Sections", Tag: nbt.List(nbt.TagCompound, sections)},
		nbt.NamedTag{Name: "Biomes", Tag: nbt.ByteArray(append([]byte(nil), c.BiomeMap[:]...))},
		nbt.NamedTag{Name: "Entities", Tag: nbt.List(nbt.TagCompound, c.Entities)},
		nbt.NamedTag{Name: "TileEntities", Tag: nbt.List(nbt.TagCompound, c.TileEntities)},
	)

	return nbt.Compound(nbt.NamedTag{Name: "Level", Tag: level})
}

// DecodeColumn parses a persisted compound back into a Column. It
// tolerates sections arriving out of Y order and a missing "Add" array,
// and recomputes the height map and per-section counters against reg
// since those are not persisted.
func DecodeColumn(doc nbt.Tag, hasSky bool, reg registryLike) (*Column, error) {
	level, ok := doc.Get("Level")
	if !ok {
		return nil, fmt.Errorf("world: chunk NBT missing Level compound")
	}

	getInt := func(name string) int32 {
		if t, ok := level.Get(name); ok {
			return t.Int
		}
		return 0
	}
	getLong := func(name string) int64 {
		if t, ok := level.Get(name); ok {
			return t.Long
		}
		return 0
	}
	getByteFlag := func(name string) bool {
		if t, ok := level.Get(name); ok {
			return t.Byte != 0
		}
		return false
	}

	c := NewColumn(getInt("xPos"), getInt("zPos"), hasSky)
	c.LastUpdate = getLong("LastUpdate")
	c.TerrainPopulated = getByteFlag("TerrainPopulated")
	c.LightPopulated = getByteFlag("LightPopulated")
	c.InhabitedTicks = getLong("InhabitedTime")

	if hm, ok := level.Get("HeightMap"); ok {
		for i := 0; i < 256 && i < len(hm.IntArray); i++ {
			c.HeightMap[i] = hm.IntArray[i]
		}
	}
	if bm, ok := level.Get("Biomes"); ok {
		copy(c.BiomeMap[:], bm.ByteArray)
	}
	if ents, ok := level.Get("Entities"); ok {
		c.Entities = ents.List
	}
	if tents, ok := level.Get("TileEntities"); ok {
		c.TileEntities = tents.List
	}

	if secs, ok := level.Get("Sections"); ok {
		for _, st := range secs.List {
			yTag, ok := st.Get("Y")
			if !ok {
				continue
			}
			y := yTag.Byte
			if y < 0 || y >= 16 {
				continue
			}
			sec := &Section{Y: y}
			if bt, ok := st.Get("Blocks"); ok {
				copy(sec.BlockLow[:], bt.ByteArray)
			}
			if dt, ok := st.Get("Data"); ok {
				copy(sec.Meta[:], dt.ByteArray)
			}
			if bl, ok := st.Get("BlockLight"); ok {
				copy(sec.BlockLight[:], bl.ByteArray)
			}
			if add, ok := st.Get("Add"); ok {
				sec.BlockHigh = append([]byte(nil), add.ByteArray...)
			}
			if sl, ok := st.Get("SkyLight"); ok {
				sec.SkyLight = append([]byte(nil), sl.ByteArray...)
			} else if hasSky {
				sec.SkyLight = make([]byte, 2048)
			}
			sec.Recount(reg)
			c.Sections[y] = sec
		}
	}

	c.RecomputeHeightMap(reg)
	return c, nil
}
