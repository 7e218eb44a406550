package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	payloads := [][]byte{
		{0x00},
		{0x01, 0xAB, 0xCD},
		bytes.Repeat([]byte{0x42}, 4096),
	}
	for _, p := range payloads {
		require.NoError(t, WriteFrame(&wire, p))
	}

	for _, want := range payloads {
		got, err := ReadFrame(&wire)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// chunkedReader feeds the underlying bytes in small pieces, to exercise
// incremental delivery the way a socket would.
type chunkedReader struct {
	data []byte
	step int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.step
	if n > len(p) {
		n = len(p)
	}
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestFrameExtractionIncremental(t *testing.T) {
	var wire bytes.Buffer
	payloads := [][]byte{{0x00, 0x01}, {0x02, 0x03, 0x04}, bytes.Repeat([]byte{0x9}, 300)}
	for _, p := range payloads {
		require.NoError(t, WriteFrame(&wire, p))
	}

	cr := &chunkedReader{data: wire.Bytes(), step: 3}
	for _, want := range payloads {
		got, err := ReadFrame(cr)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestFrameTooLarge(t *testing.T) {
	var wire bytes.Buffer
	_, err := VarInt(MaxPayload + 1).WriteTo(&wire)
	require.NoError(t, err)

	_, err = ReadFrame(&wire)
	require.Error(t, err)
	pe, ok := IsProtocolError(err)
	require.True(t, ok)
	require.Equal(t, FrameTooLarge, pe.Kind)
}

func TestPacketEncodeParse(t *testing.T) {
	p := NewPacket(0x05, VarInt(1234), String("hello"))
	var wire bytes.Buffer
	_, err := p.WriteTo(&wire)
	require.NoError(t, err)

	payload, err := ReadFrame(&wire)
	require.NoError(t, err)

	id, body, err := ParsePacket(payload)
	require.NoError(t, err)
	require.Equal(t, int32(0x05), id)

	var v VarInt
	_, err = v.ReadFrom(body)
	require.NoError(t, err)
	require.Equal(t, VarInt(1234), v)

	var s String
	_, err = s.ReadFrom(body)
	require.NoError(t, err)
	require.Equal(t, String("hello"), s)
}
