// Package region implements the sector-packed on-disk chunk container:
// one file per 32x32 chunk region, offset/timestamp tables in the first
// two sectors, and a zlib-compressed NBT payload per saved chunk.
package region

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"
)

const (
	sectorSize     = 4096
	gridEdge       = 32
	entryCount     = gridEdge * gridEdge
	headerSectors  = 2 // offset table + timestamp table, 4096 bytes each
	chunkHeaderLen = 5 // u32 length + u8 compression

	compressionGZip = 1
	compressionZlib = 2

	maxSectorsPerChunk = 255
)

// RegionFile is the persistence unit backing one 32x32 area of chunk
// columns. One mutex covers the file handle, both tables, and the
// sector-free bookkeeping.
type RegionFile struct {
	mu         sync.Mutex
	f          *os.File
	offsets    [entryCount]uint32 // (sectorIndex<<8)|sectorCount, 0 = unsaved
	timestamps [entryCount]uint32
	used       []bool // sector usage bitmap, index 0/1 always true
}

// Open opens (creating if necessary) the region file at path and loads
// its offset/timestamp tables.
func Open(path string) (*RegionFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	rf := &RegionFile{f: f, used: []bool{true, true}}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() >= headerSectors*sectorSize {
		if err := rf.loadTables(); err != nil {
			f.Close()
			return nil, err
		}
		rf.rebuildBitmap(info.Size())
	} else {
		if err := rf.growTo(headerSectors * sectorSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	return rf, nil
}

// Close flushes and releases the file handle.
func (rf *RegionFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.f.Close()
}

func (rf *RegionFile) loadTables() error {
	buf := make([]byte, headerSectors*sectorSize)
	if _, err := rf.f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return err
	}
	for i := 0; i < entryCount; i++ {
		rf.offsets[i] = binary.BigEndian.Uint32(buf[i*4 : i*4+4])
	}
	tsBase := sectorSize
	for i := 0; i < entryCount; i++ {
		rf.timestamps[i] = binary.BigEndian.Uint32(buf[tsBase+i*4 : tsBase+i*4+4])
	}
	return nil
}

func (rf *RegionFile) rebuildBitmap(fileSize int64) {
	totalSectors := int(fileSize / sectorSize)
	if totalSectors < headerSectors {
		totalSectors = headerSectors
	}
	rf.used = make([]bool, totalSectors)
	rf.used[0] = true
	rf.used[1] = true
	for _, o := range rf.offsets {
		if o == 0 {
			continue
		}
		start := int(o >> 8)
		count := int(o & 0xFF)
		for s := start; s < start+count && s < len(rf.used); s++ {
			rf.used[s] = true
		}
	}
}

func (rf *RegionFile) growTo(size int64) error {
	return rf.f.Truncate(size)
}

// index maps local chunk coordinates [0,32) to a table slot.
func index(lx, lz int) (int, error) {
	if lx < 0 || lx >= gridEdge || lz < 0 || lz >= gridEdge {
		return 0, fmt.Errorf("region: local coords (%d,%d) out of range", lx, lz)
	}
	return lx + lz*gridEdge, nil
}

// ReadChunk returns the decompressed NBT payload for chunk (lx, lz), or
// ok=false if the slot has never been saved.
func (rf *RegionFile) ReadChunk(lx, lz int) (data []byte, ok bool, err error) {
	idx, err := index(lx, lz)
	if err != nil {
		return nil, false, err
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()

	entry := rf.offsets[idx]
	if entry == 0 {
		return nil, false, nil
	}
	startSector := int64(entry >> 8)
	sectorCount := int64(entry & 0xFF)

	header := make([]byte, chunkHeaderLen)
	if _, err := rf.f.ReadAt(header, startSector*sectorSize); err != nil {
		return nil, false, fmt.Errorf("region: read header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[0:4])
	compression := header[4]
	if length < 1 || int64(length) > sectorCount*sectorSize {
		return nil, false, fmt.Errorf("region: chunk (%d,%d) declares invalid length %d", lx, lz, length)
	}

	compressed := make([]byte, length-1)
	if _, err := rf.f.ReadAt(compressed, startSector*sectorSize+chunkHeaderLen); err != nil {
		return nil, false, fmt.Errorf("region: read payload: %w", err)
	}

	var out []byte
	switch compression {
	case compressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, false, fmt.Errorf("region: zlib: %w", err)
		}
		defer zr.Close()
		out, err = io.ReadAll(zr)
		if err != nil {
			return nil, false, fmt.Errorf("region: zlib inflate: %w", err)
		}
	case compressionGZip:
		gr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, false, fmt.Errorf("region: gzip: %w", err)
		}
		defer gr.Close()
		out, err = io.ReadAll(gr)
		if err != nil {
			return nil, false, fmt.Errorf("region: gzip inflate: %w", err)
		}
	default:
		return nil, false, fmt.Errorf("region: unknown compression type %d", compression)
	}
	return out, true, nil
}

// WriteChunk zlib-compresses data and stores it in chunk slot (lx, lz),
// reusing the prior sector run when the new size fits exactly, otherwise
// reclaiming the old run and allocating a new one (first-fit, else
// append).
func (rf *RegionFile) WriteChunk(lx, lz int, data []byte) error {
	idx, err := index(lx, lz)
	if err != nil {
		return err
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("region: zlib deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("region: zlib close: %w", err)
	}

	total := chunkHeaderLen + compressed.Len()
	sectors := (total + sectorSize - 1) / sectorSize
	if sectors == 0 {
		sectors = 1
	}
	if sectors >= maxSectorsPerChunk+1 {
		return fmt.Errorf("region: chunk (%d,%d) needs %d sectors, exceeds max", lx, lz, sectors)
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()

	prior := rf.offsets[idx]
	var priorStart, priorCount int
	if prior != 0 {
		priorStart = int(prior >> 8)
		priorCount = int(prior & 0xFF)
	}

	var startSector int
	if prior != 0 && priorCount == sectors {
		startSector = priorStart
	} else {
		if prior != 0 {
			rf.freeRun(priorStart, priorCount)
		}
		startSector = rf.allocate(sectors)
	}

	header := make([]byte, chunkHeaderLen)
	binary.BigEndian.PutUint32(header[0:4], uint32(compressed.Len()+1))
	header[4] = compressionZlib

	padded := make([]byte, sectors*sectorSize)
	copy(padded, header)
	copy(padded[chunkHeaderLen:], compressed.Bytes())

	if _, err := rf.f.WriteAt(padded, int64(startSector)*sectorSize); err != nil {
		return fmt.Errorf("region: write chunk body: %w", err)
	}

	rf.offsets[idx] = uint32(startSector<<8) | uint32(sectors)
	rf.timestamps[idx] = uint32(time.Now().Unix())

	if err := rf.flushTables(); err != nil {
		return err
	}
	return rf.f.Sync()
}

// freeRun marks sectors [start, start+count) as free in the bitmap. The
// file itself is not truncated; the space is reused by a later
// allocation.
func (rf *RegionFile) freeRun(start, count int) {
	for s := start; s < start+count && s < len(rf.used); s++ {
		rf.used[s] = false
	}
}

// allocate finds the first contiguous free run of the requested size,
// preferring reuse over growing the file; absent a fit, it appends.
func (rf *RegionFile) allocate(sectors int) int {
	run := 0
	start := -1
	for i := headerSectors; i < len(rf.used); i++ {
		if !rf.used[i] {
			if run == 0 {
				start = i
			}
			run++
			if run == sectors {
				rf.markUsed(start, sectors)
				return start
			}
		} else {
			run = 0
			start = -1
		}
	}
	// No run large enough: append past the end of the file.
	appendAt := len(rf.used)
	for i := 0; i < sectors; i++ {
		rf.used = append(rf.used, true)
	}
	_ = rf.growTo(int64(len(rf.used)) * sectorSize)
	return appendAt
}

func (rf *RegionFile) markUsed(start, count int) {
	for s := start; s < start+count; s++ {
		rf.used[s] = true
	}
}

func (rf *RegionFile) flushTables() error {
	buf := make([]byte, headerSectors*sectorSize)
	for i := 0; i < entryCount; i++ {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], rf.offsets[i])
	}
	tsBase := sectorSize
	for i := 0; i < entryCount; i++ {
		binary.BigEndian.PutUint32(buf[tsBase+i*4:tsBase+i*4+4], rf.timestamps[i])
	}
	_, err := rf.f.WriteAt(buf, 0)
	return err
}

// SectorRanges returns the currently allocated (start, count) sector
// runs, for overlap testing in tests.
func (rf *RegionFile) SectorRanges() [][2]int {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	var out [][2]int
	for _, o := range rf.offsets {
		if o == 0 {
			continue
		}
		out = append(out, [2]int{int(o >> 8), int(o & 0xFF)})
	}
	return out
}
