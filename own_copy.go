//go:build !mqttborrow && !tinygo

package mqtt

// Decoded strings and binary fields are copied out of the cursor, so packets
// remain valid after the cursor's memory is reused.
const borrowsInput = false

// own returns a copy of b, or nil if b is empty.
func own(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
