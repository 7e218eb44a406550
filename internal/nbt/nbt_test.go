package nbt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripSimpleCompound(t *testing.T) {
	doc := Compound(
		NamedTag{Name: "xPos", Tag: Int(5)},
		NamedTag{Name: "zPos", Tag: Int(-3)},
		NamedTag{Name: "Name", Tag: Str("overworld")},
		NamedTag{Name: "Blocks", Tag: ByteArray(bytes.Repeat([]byte{1, 2, 3}, 100))},
		NamedTag{Name: "Biomes", Tag: ByteArray(make([]byte, 256))},
		NamedTag{Name: "HeightMap", Tag: IntArray(make([]int32, 256))},
		NamedTag{Name: "Flag", Tag: Byte(1)},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteNamed(&buf, "Level", doc))

	name, got, err := ReadNamed(&buf)
	require.NoError(t, err)
	require.Equal(t, "Level", name)
	require.True(t, Equal(doc, got))
}

func TestRoundTripNestedListsAndCompounds(t *testing.T) {
	section := Compound(
		NamedTag{Name: "Y", Tag: Byte(4)},
		NamedTag{Name: "Blocks", Tag: ByteArray(make([]byte, 4096))},
	)
	doc := Compound(
		NamedTag{Name: "Sections", Tag: List(TagCompound, []Tag{section, section})},
		NamedTag{Name: "Entities", Tag: List(TagCompound, nil)},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteNamed(&buf, "Level", doc))
	_, got, err := ReadNamed(&buf)
	require.NoError(t, err)
	require.True(t, Equal(doc, got))
}

func TestDepthLimitRejected(t *testing.T) {
	// Build a compound nested deeper than MaxDepth and confirm reading it
	// fails rather than overflowing the stack.
	var buf bytes.Buffer
	buf.WriteByte(TagCompound)
	buf.Write([]byte{0, 4})
	buf.WriteString("Root")

	for i := 0; i < MaxDepth+10; i++ {
		buf.WriteByte(TagCompound)
		name := "n"
		buf.Write([]byte{0, byte(len(name))})
		buf.WriteString(name)
	}
	// Close all the nested compounds plus the root.
	buf.Write(bytes.Repeat([]byte{TagEnd}, MaxDepth+11))

	_, _, err := ReadNamed(&buf)
	require.Error(t, err)
}

func TestGetPut(t *testing.T) {
	c := Compound(NamedTag{Name: "a", Tag: Int(1)})
	c = c.Put("b", Str("hi"))
	v, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, "hi", v.Str)

	_, ok = c.Get(strings.Repeat("z", 3))
	require.False(t, ok)
}
