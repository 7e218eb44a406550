package region

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// pseudoRandomBytes returns n deterministic, poorly compressible bytes, so
// a payload's sector count after zlib tracks its raw size.
func pseudoRandomBytes(n int, seed uint32) []byte {
	b := make([]byte, n)
	x := seed
	for i := range b {
		x = x*1103515245 + 12345
		b[i] = byte(x >> 16)
	}
	return b
}

func TestReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rf, err := Open(filepath.Join(dir, "r.0.0.mca"))
	require.NoError(t, err)
	defer rf.Close()

	payload := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 1000)
	require.NoError(t, rf.WriteChunk(3, 4, payload))

	got, ok, err := rf.ReadChunk(3, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, got)

	_, ok, err = rf.ReadChunk(1, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFreeListReallocation(t *testing.T) {
	dir := t.TempDir()
	rf, err := Open(filepath.Join(dir, "r.0.0.mca"))
	require.NoError(t, err)
	defer rf.Close()

	// Chunk A: small payload (fits in 2 sectors after zlib+header).
	a := pseudoRandomBytes(6000, 1)
	require.NoError(t, rf.WriteChunk(0, 0, a))

	// Chunk B: larger payload (3 sectors), placed right after A.
	b := pseudoRandomBytes(10000, 2)
	require.NoError(t, rf.WriteChunk(0, 1, b))

	rangesBefore := rf.SectorRanges()
	require.Len(t, rangesBefore, 2)
	aStart, aCount := rangesBefore[0][0], rangesBefore[0][1]
	bStart, bCount := rangesBefore[1][0], rangesBefore[1][1]
	require.Less(t, aStart+aCount-1, bStart)

	// Overwrite A with something requiring more sectors than it had.
	aBig := pseudoRandomBytes(10000, 3)
	require.NoError(t, rf.WriteChunk(0, 0, aBig))

	rangesAfter := rf.SectorRanges()
	require.Len(t, rangesAfter, 2)

	// A's new location must not overlap B's range at all.
	var newA, stillB [2]int
	for _, r := range rangesAfter {
		if r[0] == bStart && r[1] == bCount {
			stillB = r
		} else {
			newA = r
		}
	}
	require.Equal(t, bStart, stillB[0])
	overlap := newA[0] < stillB[0]+stillB[1] && stillB[0] < newA[0]+newA[1]
	require.False(t, overlap, "new A range %v must not overlap B range %v", newA, stillB)

	got, ok, err := rf.ReadChunk(0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, aBig, got)

	gotB, ok, err := rf.ReadChunk(0, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b, gotB)
}

func TestNoSectorAliasing(t *testing.T) {
	dir := t.TempDir()
	rf, err := Open(filepath.Join(dir, "r.1.2.mca"))
	require.NoError(t, err)
	defer rf.Close()

	for i := 0; i < 40; i++ {
		data := bytes.Repeat([]byte{byte(i)}, 500+i*137)
		require.NoError(t, rf.WriteChunk(i%32, i/32, data))
	}
	// Rewrite a few at different sizes to exercise both the reuse and
	// free-and-reallocate paths.
	for _, i := range []int{0, 5, 10, 39} {
		data := bytes.Repeat([]byte{byte(i + 1)}, 9000) // one sector: reuse
		if i >= 10 {
			data = pseudoRandomBytes(9000, uint32(i)) // three sectors: reallocate
		}
		require.NoError(t, rf.WriteChunk(i%32, i/32, data))
	}

	ranges := rf.SectorRanges()
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			overlap := a[0] < b[0]+b[1] && b[0] < a[0]+a[1]
			require.False(t, overlap, "ranges %v and %v overlap", a, b)
		}
	}
}

func TestReopenPersistsTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.0.0.mca")
	rf, err := Open(path)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{9}, 6000)
	require.NoError(t, rf.WriteChunk(2, 2, payload))
	require.NoError(t, rf.Close())

	rf2, err := Open(path)
	require.NoError(t, err)
	defer rf2.Close()
	got, ok, err := rf2.ReadChunk(2, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, got)
}
