package world

// EncodeChunkData builds the uncompressed payload blob for a chunk-data
// packet (§4.6.1, §3.6): per present section, block id low bytes, then
// metadata nibbles, then block-light nibbles, then sky-light nibbles (if
// the dimension has sky), in section-index order; then, for sections
// whose bitmask bit is set in the returned add mask, the high-nibble
// block-id array; then, if full is true, the 256-byte biome array. The
// caller (the network layer) is responsible for zlib-compressing this
// blob before framing it onto the wire.
func (c *Column) EncodeChunkData(full bool) (primaryBitmask, addBitmask uint16, data []byte) {
	primaryBitmask = c.SectionBitmask()
	addBitmask = c.AddBitmask()

	var buf []byte
	for i := 0; i < 16; i++ {
		sec := c.Sections[i]
		if sec == nil {
			continue
		}
		buf = append(buf, sec.BlockLow[:]...)
	}
	for i := 0; i < 16; i++ {
		sec := c.Sections[i]
		if sec == nil {
			continue
		}
		buf = append(buf, sec.Meta[:]...)
	}
	for i := 0; i < 16; i++ {
		sec := c.Sections[i]
		if sec == nil {
			continue
		}
		buf = append(buf, sec.BlockLight[:]...)
	}
	if c.HasSky {
		for i := 0; i < 16; i++ {
			sec := c.Sections[i]
			if sec == nil {
				continue
			}
			buf = append(buf, sec.SkyLight...)
		}
	}
	for i := 0; i < 16; i++ {
		sec := c.Sections[i]
		if sec == nil || sec.BlockHigh == nil {
			continue
		}
		buf = append(buf, sec.BlockHigh...)
	}
	if full {
		buf = append(buf, c.BiomeMap[:]...)
	}
	return primaryBitmask, addBitmask, buf
}
