//go:build !mqttfixed && !mqttarena

package mqtt

import "github.com/valyala/bytebufferpool"

// Buffer is the Sink backing selected at build time. By default it is a
// GrowBuffer. Build with the mqttfixed or mqttarena tag to select
// FixedBuffer or ArenaBuffer instead.
type Buffer = GrowBuffer

// Backing names the Sink backing selected at build time.
const Backing = "grow"

// AppendPacket encodes p and appends it to dst, growing dst as needed.
// On error dst is returned unchanged.
func AppendPacket(dst []byte, p Packet) ([]byte, error) {
	g := GrowBuffer{bb: &bytebufferpool.ByteBuffer{B: dst}}
	if err := Encode(&g, p); err != nil {
		return dst, err
	}
	return g.Bytes(), nil
}
