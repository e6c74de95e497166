package mqtt

import (
	"errors"
	"io"

	"github.com/valyala/bytebufferpool"
)

// Cursor is a source of packet bytes for Decode.
type Cursor interface {
	// Next returns the next n bytes of input and advances past them. It returns
	// ErrTruncated if fewer than n bytes are available. Decoded fields may alias
	// the returned slice when built with the mqttborrow tag, so implementations
	// must not reuse the memory of a returned slice while a packet is in use.
	Next(n int) ([]byte, error)
}

// SliceCursor reads packets from an in-memory byte slice. Slices returned by
// Next alias the underlying slice.
type SliceCursor struct {
	buf []byte
	off int
}

// NewSliceCursor returns a cursor positioned at the start of b.
func NewSliceCursor(b []byte) *SliceCursor {
	return &SliceCursor{buf: b}
}

func (sc *SliceCursor) Next(n int) ([]byte, error) {
	if n < 0 || n > len(sc.buf)-sc.off {
		return nil, ErrTruncated
	}
	b := sc.buf[sc.off : sc.off+n : sc.off+n]
	sc.off += n
	return b, nil
}

// Len returns the number of unread bytes.
func (sc *SliceCursor) Len() int { return len(sc.buf) - sc.off }

// Offset returns the number of bytes consumed so far.
func (sc *SliceCursor) Offset() int { return sc.off }

// ReaderCursor reads packets from an io.Reader such as a network connection.
// Bytes are read into consecutive regions of Buf so that borrowed fields stay
// valid until Reset is called. Buf must hold every byte of the packets decoded
// between calls to Reset, otherwise Next returns ErrCapacityExceeded.
// If Buf is nil every call to Next allocates, growing large reads as input arrives.
//
// ReaderCursor is not safe for concurrent use.
type ReaderCursor struct {
	R   io.Reader
	Buf []byte
	off int
	n   int64
}

func (rc *ReaderCursor) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrTruncated
	}
	if rc.Buf == nil && n > maxEagerRead {
		return rc.nextGrow(n)
	}
	var dst []byte
	if rc.Buf == nil {
		dst = make([]byte, n)
	} else {
		if n > len(rc.Buf)-rc.off {
			return nil, ErrCapacityExceeded
		}
		dst = rc.Buf[rc.off : rc.off+n : rc.off+n]
	}
	got, err := io.ReadFull(rc.R, dst)
	rc.n += int64(got)
	if rc.Buf != nil {
		rc.off += got
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, ErrTruncated
	} else if err != nil {
		return nil, err
	}
	return dst, nil
}

// maxEagerRead is the largest read an unbuffered ReaderCursor allocates for
// before any bytes arrive.
const maxEagerRead = 4096

// nextGrow reads n bytes into memory that grows as input arrives, so a
// Remaining Length larger than the input does not allocate its full size.
func (rc *ReaderCursor) nextGrow(n int) ([]byte, error) {
	var bb bytebufferpool.ByteBuffer
	got, err := bb.ReadFrom(io.LimitReader(rc.R, int64(n)))
	rc.n += got
	if err != nil {
		return nil, err
	}
	if got < int64(n) {
		return nil, ErrTruncated
	}
	return bb.B[:n:n], nil
}

// Reset makes the whole of Buf available again. Fields borrowed from
// previously decoded packets are invalidated.
func (rc *ReaderCursor) Reset() { rc.off = 0 }

// Buffered returns the number of bytes of Buf in use since the last Reset.
func (rc *ReaderCursor) Buffered() int { return rc.off }

// InputOffset returns the total number of bytes read from R.
func (rc *ReaderCursor) InputOffset() int64 { return rc.n }
