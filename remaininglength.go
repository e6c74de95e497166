package mqtt

// RemainingLengthSize returns the number of bytes v occupies when encoded as a
// Remaining Length, or 0 if v exceeds MaxRemainingLength.
func RemainingLengthSize(v uint32) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v <= MaxRemainingLength:
		return 4
	}
	return 0
}

// EncodeRemainingLength appends v to s as a variable length integer of 1 to 4 bytes.
// Each byte carries 7 bits of value, least significant group first, with bit 7
// set on all but the last byte. v must not exceed MaxRemainingLength.
func EncodeRemainingLength(s Sink, v uint32) error {
	var buf [maxRemainingLengthSize]byte
	n, err := putRemainingLength(buf[:], v)
	if err != nil {
		return err
	}
	return s.Append(buf[:n])
}

// putRemainingLength encodes v into b which must be at least 4 bytes long.
func putRemainingLength(b []byte, v uint32) (n int, err error) {
	if v > MaxRemainingLength {
		return 0, ErrValueTooLarge
	}
	_ = b[maxRemainingLengthSize-1]
	for {
		encoded := byte(v % 128)
		v /= 128
		if v > 0 {
			encoded |= 128
		}
		b[n] = encoded
		n++
		if v == 0 {
			return n, nil
		}
	}
}

// DecodeRemainingLength reads a variable length integer from c. It returns
// ErrMalformedVarint if the fourth byte has its continuation bit set or if the
// value was not encoded in the least number of bytes possible.
func DecodeRemainingLength(c Cursor) (uint32, error) {
	var value uint32
	for i := 0; i < maxRemainingLengthSize; i++ {
		b, err := c.Next(1)
		if err != nil {
			return 0, err
		}
		encoded := b[0]
		value |= uint32(encoded&127) << (7 * i)
		if encoded&128 == 0 {
			if i > 0 && encoded == 0 {
				// Trailing zero group, a shorter encoding exists.
				return 0, ErrMalformedVarint
			}
			return value, nil
		}
	}
	return 0, ErrMalformedVarint
}
