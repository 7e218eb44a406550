package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 127, 128, 255, 25565, -2147483648, 2147483647, 300, -300}
	for _, v := range cases {
		var buf bytes.Buffer
		n, err := VarInt(v).WriteTo(&buf)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(1))
		require.LessOrEqual(t, n, int64(5))

		var got VarInt
		_, err = got.ReadFrom(&buf)
		require.NoError(t, err)
		require.Equal(t, v, int32(got))
	}
}

func TestVarIntTooLong(t *testing.T) {
	// Five bytes with continuation bits set, followed by a sixth: invalid.
	buf := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00})
	var v VarInt
	_, err := v.ReadFrom(buf)
	require.Error(t, err)
	pe, ok := IsProtocolError(err)
	require.True(t, ok)
	require.Equal(t, VarIntTooLong, pe.Kind)
}

func TestVarLongRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 9223372036854775807, -9223372036854775808, 123456789}
	for _, v := range cases {
		var buf bytes.Buffer
		_, err := VarLong(v).WriteTo(&buf)
		require.NoError(t, err)

		var got VarLong
		_, err = got.ReadFrom(&buf)
		require.NoError(t, err)
		require.Equal(t, v, int64(got))
	}
}

func TestAngleRoundTrip(t *testing.T) {
	a := DegreesToAngle(180)
	require.InDelta(t, float32(180), AngleToDegrees(a), 1.5)
}

func TestFixedCoord(t *testing.T) {
	require.Equal(t, Int(32*5), FixedCoord(5))
	require.Equal(t, Int(-32), FixedCoord(-1))
}
