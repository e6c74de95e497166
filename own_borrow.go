//go:build mqttborrow || tinygo

package mqtt

// Decoded strings and binary fields alias the bytes returned by the cursor.
// Packets are only valid while the cursor's memory is left untouched.
const borrowsInput = true

// own returns b with its capacity clipped so appends to a decoded field
// cannot overwrite the input. It returns nil if b is empty.
func own(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b[:len(b):len(b)]
}
