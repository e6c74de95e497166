//go:build mqttfixed && !mqttarena

package mqtt

// Buffer is the Sink backing selected at build time. This build bounds
// every packet to FixedBufferSize bytes.
type Buffer = FixedBuffer

// Backing names the Sink backing selected at build time.
const Backing = "fixed"

// AppendPacket encodes p into a FixedBuffer and appends the result to dst.
// Packets larger than FixedBufferSize fail with ErrCapacityExceeded.
// On error dst is returned unchanged.
func AppendPacket(dst []byte, p Packet) ([]byte, error) {
	var fb FixedBuffer
	if err := Encode(&fb, p); err != nil {
		return dst, err
	}
	return append(dst, fb.Bytes()...), nil
}
