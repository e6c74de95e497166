//go:build mqttarena && !mqttfixed

package mqtt

// Buffer is the Sink backing selected at build time. This build writes into
// caller owned memory and never allocates.
type Buffer = ArenaBuffer

// Backing names the Sink backing selected at build time.
const Backing = "arena"

// AppendPacket encodes p into the spare capacity of dst. dst is never grown:
// packets that do not fit in cap(dst)-len(dst) fail with ErrCapacityExceeded.
// On error dst is returned unchanged.
func AppendPacket(dst []byte, p Packet) ([]byte, error) {
	ab := ArenaBuffer{buf: dst}
	if err := Encode(&ab, p); err != nil {
		return dst, err
	}
	return ab.Bytes(), nil
}
