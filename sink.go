package mqtt

import (
	"io"

	"github.com/valyala/bytebufferpool"
)

// Sink is a destination for encoded packet bytes.
type Sink interface {
	// Append writes all of b. Sinks with a capacity limit return
	// ErrCapacityExceeded and write nothing when b does not fit.
	Append(b []byte) error
}

// FixedBufferSize is the capacity of a FixedBuffer, the size of a typical
// Ethernet MTU.
const FixedBufferSize = 1500

var (
	_ Sink = (*GrowBuffer)(nil)
	_ Sink = (*FixedBuffer)(nil)
	_ Sink = (*ArenaBuffer)(nil)
)

// GrowBuffer is an unbounded Sink. The zero value is ready to use.
// Buffers obtained with AcquireGrowBuffer share storage through a pool and
// should be returned with ReleaseGrowBuffer.
type GrowBuffer struct {
	bb *bytebufferpool.ByteBuffer
}

// AcquireGrowBuffer returns an empty GrowBuffer from the buffer pool.
func AcquireGrowBuffer() *GrowBuffer {
	return &GrowBuffer{bb: bytebufferpool.Get()}
}

// ReleaseGrowBuffer returns g's storage to the buffer pool. Slices obtained from
// g.Bytes must not be used after this call.
func ReleaseGrowBuffer(g *GrowBuffer) {
	if g.bb != nil {
		bytebufferpool.Put(g.bb)
		g.bb = nil
	}
}

func (g *GrowBuffer) Append(b []byte) error {
	if g.bb == nil {
		g.bb = new(bytebufferpool.ByteBuffer)
	}
	_, err := g.bb.Write(b)
	return err
}

// Bytes returns the encoded bytes. The slice aliases g's storage.
func (g *GrowBuffer) Bytes() []byte {
	if g.bb == nil {
		return nil
	}
	return g.bb.B
}

func (g *GrowBuffer) Len() int { return len(g.Bytes()) }

// Reset discards the contents of g and keeps its storage.
func (g *GrowBuffer) Reset() {
	if g.bb != nil {
		g.bb.Reset()
	}
}

// WriteTo writes the contents of g to w.
func (g *GrowBuffer) WriteTo(w io.Writer) (int64, error) {
	if g.bb == nil {
		return 0, nil
	}
	return g.bb.WriteTo(w)
}

// FixedBuffer is a Sink with inline storage of FixedBufferSize bytes, so a
// FixedBuffer declared as a local variable does not allocate.
type FixedBuffer struct {
	// Limit lowers the capacity of the buffer below FixedBufferSize when non-zero.
	Limit int
	n     int
	buf   [FixedBufferSize]byte
}

// Cap returns the capacity of f.
func (f *FixedBuffer) Cap() int {
	if f.Limit > 0 && f.Limit < FixedBufferSize {
		return f.Limit
	}
	return FixedBufferSize
}

func (f *FixedBuffer) Append(b []byte) error {
	if len(b) > f.Cap()-f.n {
		return ErrCapacityExceeded
	}
	f.n += copy(f.buf[f.n:], b)
	return nil
}

// Bytes returns the encoded bytes. The slice aliases f.
func (f *FixedBuffer) Bytes() []byte { return f.buf[:f.n] }

func (f *FixedBuffer) Len() int { return f.n }

func (f *FixedBuffer) Reset() { f.n = 0 }

// ArenaBuffer is a Sink writing into memory owned by the caller. It never
// allocates: appends that do not fit in the capacity of the arena fail.
type ArenaBuffer struct {
	buf []byte
}

// NewArenaBuffer returns an ArenaBuffer writing to arena[:cap(arena)].
func NewArenaBuffer(arena []byte) *ArenaBuffer {
	return &ArenaBuffer{buf: arena[:0]}
}

func (a *ArenaBuffer) Append(b []byte) error {
	if len(b) > cap(a.buf)-len(a.buf) {
		return ErrCapacityExceeded
	}
	a.buf = append(a.buf, b...)
	return nil
}

// Bytes returns the encoded bytes. The slice aliases the arena.
func (a *ArenaBuffer) Bytes() []byte { return a.buf }

func (a *ArenaBuffer) Len() int { return len(a.buf) }

// Cap returns the capacity of the arena.
func (a *ArenaBuffer) Cap() int { return cap(a.buf) }

func (a *ArenaBuffer) Reset() { a.buf = a.buf[:0] }
