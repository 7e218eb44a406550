package protocol

import (
	"bytes"
	"io"
)

// MaxPayload is the largest legal frame payload, per the wire spec.
const MaxPayload = 2 * 1024 * 1024

// ReadFrame extracts one length-prefixed frame from r: a VarInt byte
// length followed by that many payload bytes. r must block until more
// bytes are available (e.g. a *bufio.Reader over a net.Conn), which is
// how this function implements the "wait for more bytes" step of frame
// extraction without any explicit buffering of its own.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length VarInt
	if _, err := length.ReadFrom(r); err != nil {
		return nil, err
	}
	if length < 0 || int64(length) > MaxPayload {
		return nil, NewError(FrameTooLarge, "length %d exceeds max %d", length, MaxPayload)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes a length-prefixed frame (the VarInt length prefix
// followed by payload) to w in a single Write call, so a frame is never
// interleaved with another frame on the same connection.
func WriteFrame(w io.Writer, payload []byte) error {
	var buf bytes.Buffer
	if _, err := VarInt(len(payload)).WriteTo(&buf); err != nil {
		return err
	}
	buf.Write(payload)
	_, err := buf.WriteTo(w)
	return err
}

// Packet is an in-memory, not-yet-framed packet: an id and its encoded
// body. Fields are appended positionally via io.WriterTo values, the way
// wire types in this package already implement WriteTo.
type Packet struct {
	ID   int32
	body bytes.Buffer
}

// NewPacket builds a Packet by writing each field's WriteTo in order.
func NewPacket(id int32, fields ...io.WriterTo) *Packet {
	p := &Packet{ID: id}
	for _, f := range fields {
		_, _ = f.WriteTo(&p.body)
	}
	return p
}

// Write implements io.Writer so packet builders can also append raw
// bytes (e.g. pre-encoded NBT or bulk chunk data) without an extra type.
func (p *Packet) Write(b []byte) (int, error) {
	return p.body.Write(b)
}

// Encode returns the frame payload: packet id followed by body, without
// the length prefix (WriteFrame adds that).
func (p *Packet) Encode() ([]byte, error) {
	var payload bytes.Buffer
	if _, err := VarInt(p.ID).WriteTo(&payload); err != nil {
		return nil, err
	}
	if _, err := p.body.WriteTo(&payload); err != nil {
		return nil, err
	}
	return payload.Bytes(), nil
}

// WriteTo frames and writes the packet to w.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	payload, err := p.Encode()
	if err != nil {
		return 0, err
	}
	if err := WriteFrame(w, payload); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

// ParsePacket splits a raw frame payload (as returned by ReadFrame) into
// its packet id and the remaining body reader.
func ParsePacket(payload []byte) (id int32, body *bytes.Reader, err error) {
	buf := bytes.NewReader(payload)
	var pid VarInt
	if _, err = pid.ReadFrom(buf); err != nil {
		return 0, nil, err
	}
	return int32(pid), buf, nil
}
