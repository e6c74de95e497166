package mqtt

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// writer is handed to a packet's body method. Without a sink it counts bytes
// and validates fields, which is how the Remaining Length is computed before
// anything is written. With a sink it writes and stops at the first error.
type writer struct {
	sink    Sink
	n       int
	err     error
	scratch [2]byte
}

// sizing reports whether w only computes sizes. Fields are validated
// during sizing since Encode always sizes a packet before writing it.
func (w *writer) sizing() bool { return w.sink == nil }

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) write(b []byte) {
	if w.sizing() {
		w.n += len(b)
		return
	}
	if w.err != nil {
		return
	}
	w.err = w.sink.Append(b)
	if w.err == nil {
		w.n += len(b)
	}
}

func (w *writer) byte(b byte) {
	w.scratch[0] = b
	w.write(w.scratch[:1])
}

func (w *writer) uint16(v uint16) {
	binary.BigEndian.PutUint16(w.scratch[:], v)
	w.write(w.scratch[:2])
}

// packetIdentifier writes a packet identifier, which must be non-zero.
func (w *writer) packetIdentifier(pi uint16) {
	if w.sizing() && pi == 0 {
		w.fail(ErrInvalidPacketIdentifier)
	}
	w.uint16(pi)
}

// binary writes b as a length prefixed binary data field.
func (w *writer) binary(b []byte) {
	if w.sizing() && len(b) > MaxStringLength {
		w.fail(ErrValueTooLarge)
	}
	w.uint16(uint16(len(b)))
	w.write(b)
}

// string writes s as a length prefixed UTF-8 string field.
func (w *writer) string(s []byte) {
	if w.sizing() {
		if err := ValidateString(s); err != nil {
			w.fail(err)
		}
	}
	w.binary(s)
}

// ValidateString checks the contents of an MQTT UTF-8 string: it must be
// well-formed UTF-8, which excludes the surrogates U+D800..U+DFFF [MQTT-1.5.3-1],
// and must not contain U+0000 [MQTT-1.5.3-2]. Length is not checked.
func ValidateString(s []byte) error {
	if !utf8.Valid(s) {
		return ErrInvalidUTF8
	}
	if bytes.IndexByte(s, 0) >= 0 {
		return ErrForbiddenCharacter
	}
	return nil
}

// window reads the body of a single packet from a Cursor and never reads past
// the Remaining Length of the packet.
type window struct {
	c Cursor
	n int
}

func (w *window) next(n int) ([]byte, error) {
	if n > w.n {
		return nil, ErrBodyTruncated
	}
	b, err := w.c.Next(n)
	if err != nil {
		return nil, err
	}
	w.n -= n
	return b, nil
}

func (w *window) byte() (byte, error) {
	b, err := w.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (w *window) uint16() (uint16, error) {
	b, err := w.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// packetIdentifier reads a packet identifier, which must be non-zero.
func (w *window) packetIdentifier() (uint16, error) {
	pi, err := w.uint16()
	if err == nil && pi == 0 {
		err = ErrInvalidPacketIdentifier
	}
	return pi, err
}

// binary reads a length prefixed binary data field.
func (w *window) binary() ([]byte, error) {
	length, err := w.uint16()
	if err != nil {
		return nil, err
	}
	b, err := w.next(int(length))
	if err != nil {
		return nil, err
	}
	return own(b), nil
}

// string reads a length prefixed UTF-8 string field.
func (w *window) string() ([]byte, error) {
	length, err := w.uint16()
	if err != nil {
		return nil, err
	}
	b, err := w.next(int(length))
	if err != nil {
		return nil, err
	}
	if err = ValidateString(b); err != nil {
		return nil, err
	}
	return own(b), nil
}

// rest reads what remains of the packet body.
func (w *window) rest() ([]byte, error) {
	b, err := w.next(w.n)
	if err != nil {
		return nil, err
	}
	return own(b), nil
}

func (w *window) empty() bool { return w.n == 0 }

// done returns ErrTrailingData if the packet body was not consumed entirely.
func (w *window) done() error {
	if w.n != 0 {
		return ErrTrailingData
	}
	return nil
}
