package stream

import (
	"encoding/hex"
	"io"

	mqtt "github.com/soypat/mqttwire"
)

// Tx encodes packets onto a byte stream using the build's Sink backing.
type Tx struct {
	w   io.Writer
	hex bool
	buf []byte
	n   int64
}

// NewTx returns a Tx writing to w. bufSize is the initial capacity of the
// encode buffer and, with the arena backing, the largest packet Tx can encode.
// When hexLines is set packets are written as lines of hexadecimal text.
func NewTx(w io.Writer, bufSize int, hexLines bool) *Tx {
	return &Tx{w: w, hex: hexLines, buf: make([]byte, 0, bufSize)}
}

// WritePacket encodes p and writes it. Nothing is written when p fails to encode.
func (tx *Tx) WritePacket(p mqtt.Packet) (int, error) {
	b, err := mqtt.AppendPacket(tx.buf[:0], p)
	if err != nil {
		return 0, err
	}
	tx.buf = b[:0]
	if tx.hex {
		line := make([]byte, hex.EncodedLen(len(b))+1)
		hex.Encode(line, b)
		line[len(line)-1] = '\n'
		b = line
	}
	n, err := tx.w.Write(b)
	tx.n += int64(n)
	return n, err
}

// Written returns the number of bytes written to the stream.
func (tx *Tx) Written() int64 { return tx.n }
