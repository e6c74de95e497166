package mqtt

import (
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Header represents the bytes preceding the variable header in an MQTT packet,
// commonly called the Fixed Header. It holds the packet type, the packet flags
// and the Remaining Length, which is the size of the rest of the packet.
type Header struct {
	// firstByte contains packet type in MSB bits 7-4 and flags in LSB bits 3-0.
	firstByte       byte
	RemainingLength uint32
}

// Size returns the size of the header as encoded over the wire. If the remaining
// length is invalid Size returns 0.
func (hd Header) Size() int {
	rlsz := RemainingLengthSize(hd.RemainingLength)
	if rlsz == 0 {
		return 0
	}
	return 1 + rlsz
}

// HasPacketIdentifier returns true if the MQTT packet has a 2 octet packet identifier number.
func (hd Header) HasPacketIdentifier() bool {
	tp := hd.Type()
	qos := hd.Flags().QoS()
	if tp == PacketPublish && (qos == 1 || qos == 2) {
		return true
	}
	noPI := tp == PacketConnect || tp == PacketConnack ||
		tp == PacketPingreq || tp == PacketPingresp || tp == PacketDisconnect || tp == PacketPublish
	return tp.IsValid() && !noPI
}

// PacketFlags represents the LSB 4 bits in the first byte in an MQTT fixed header.
// PacketFlags takes on select values in range 0..15. PacketType and PacketFlags are present in all MQTT packets.
type PacketFlags uint8

// QoS returns the PUBLISH QoSLevel in pf which varies between 0..2.
// PUBREL, UNSUBSCRIBE and SUBSCRIBE packets MUST have QoS1 set by standard.
// Other packets will have a QoS0 set.
func (pf PacketFlags) QoS() QoSLevel { return QoSLevel((pf >> 1) & 0b11) }

// Retain returns true if the PUBLISH Retain bit is set. This typically is set by the client
// to indicate the packet must be preserved after a Session ends which is to say Retained packets do not form part of Session state.
func (pf PacketFlags) Retain() bool { return pf&1 != 0 }

// Dup returns true if the DUP flag bit is set.
// If the DUP flag is set to 0, it indicates that this is the first occasion that the Client or Server has attempted to send this MQTT PUBLISH Packet.
func (pf PacketFlags) Dup() bool { return pf&(1<<3) != 0 }

// String returns a pretty string representation of pf. Allocates memory.
func (pf PacketFlags) String() string {
	if pf > 15 {
		return "invalid packet flags"
	}
	s := pf.QoS().String()
	if pf.Dup() {
		s += "/DUP"
	}
	if pf.Retain() {
		s += "/RET"
	}
	return s
}

// NewPublishFlags returns PUBLISH packet flags and an error if the flags were
// to create a malformed packet according to MQTT specification.
func NewPublishFlags(qos QoSLevel, dup, retain bool) (PacketFlags, error) {
	if !qos.IsValid() {
		return 0, ErrInvalidQoS
	}
	if dup && qos == QoS0 {
		return 0, errQoS0NoDup
	}
	return PacketFlags(b2u8(retain) | (b2u8(dup) << 3) | uint8(qos<<1)), nil
}

var errQoS0NoDup = errors.WithMessage(ErrInvalidFlags, "DUP must be 0 for all QoS0 [MQTT-3.3.1-2]")

// NewHeader creates a new Header for a packetType and returns an error if invalid
// arguments are passed in. It will set expected reserved flags for non-PUBLISH packets.
func NewHeader(packetType PacketType, packetFlags PacketFlags, remainingLen uint32) (Header, error) {
	if packetType != PacketPublish {
		packetFlags = packetType.reservedFlags()
	}
	if packetFlags > 15 {
		return Header{}, errors.WithMessage(ErrInvalidFlags, "packet flags exceeds 4 bit range 0..15")
	}
	if packetType > 15 {
		return Header{}, errors.WithMessage(ErrUnknownPacketType, "packet type exceeds 4 bit range 0..15")
	}
	if remainingLen > MaxRemainingLength {
		return Header{}, ErrValueTooLarge
	}
	h := newHeader(packetType, packetFlags, remainingLen)
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func newHeader(pt PacketType, pf PacketFlags, rlen uint32) Header {
	return Header{ // Creates a header with no error checking. For internal use.
		firstByte:       byte(pt)<<4 | byte(pf),
		RemainingLength: rlen,
	}
}

// Validate returns an error if the Header contains malformed data. This usually means
// the header has bits set that contradict "MUST" statements in MQTT's protocol specification.
func (h Header) Validate() error {
	ptype := h.Type()
	if !ptype.IsValid() {
		return errors.WithMessagef(ErrUnknownPacketType, "type %d", uint8(ptype))
	}
	return ptype.validateFlags(h.Flags())
}

// Flags returns the MQTT packet flags in the fixed header. Important mainly for PUBLISH packets.
func (h Header) Flags() PacketFlags { return PacketFlags(h.firstByte & 0b1111) }

// Type returns the packet type with no validation.
func (h Header) Type() PacketType { return PacketType(h.firstByte >> 4) }

// String returns a pretty-string representation of h. Allocates memory.
func (h Header) String() string {
	return h.Type().String() + " " + h.Flags().String() + " remlen: 0x" + strconv.FormatUint(uint64(h.RemainingLength), 16)
}

// Encode writes the header to s. It writes between 2 and 5 bytes.
func (h Header) Encode(s Sink) error {
	var buf [1 + maxRemainingLengthSize]byte
	n, err := h.Put(buf[:])
	if err != nil {
		return err
	}
	return s.Append(buf[:n])
}

// Put encodes the header into buf, which must be at least 5 bytes long, and
// returns the number of bytes written.
func (h Header) Put(buf []byte) (int, error) {
	_ = buf[maxRemainingLengthSize]
	buf[0] = h.firstByte
	n, err := putRemainingLength(buf[1:], h.RemainingLength)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// DecodeHeader reads a fixed header from c. The first byte of c must be the
// first byte of an MQTT packet. The packet type and flags are validated before
// the Remaining Length is read.
//
// If the packet type is unknown or the flags are invalid the Remaining Length
// is still decoded and returned in the header together with the validation
// error. c is then positioned at the start of the packet body so a caller may
// skip RemainingLength bytes and continue. When the Remaining Length cannot be
// decoded either, the returned error matches both causes.
func DecodeHeader(c Cursor) (Header, error) {
	b, err := c.Next(1)
	if err != nil {
		return Header{}, err
	}
	hdr := Header{firstByte: b[0]}
	verr := hdr.Validate()
	rlen, err := DecodeRemainingLength(c)
	if err != nil {
		return hdr, multierr.Combine(verr, err)
	}
	hdr.RemainingLength = rlen
	return hdr, verr
}

// PacketType lists in definitions.go

// IsValid returns true if p is one of the 14 MQTT control packet types.
func (p PacketType) IsValid() bool { return p >= PacketConnect && p <= PacketDisconnect }

// reservedFlags returns the fixed header flags mandated for non-PUBLISH packets.
func (p PacketType) reservedFlags() PacketFlags {
	if p == PacketPubrel || p == PacketSubscribe || p == PacketUnsubscribe {
		return flagsPubrelSubUnsub
	}
	return 0
}

func (p PacketType) validateFlags(flag4bits PacketFlags) error {
	if p == PacketPublish {
		qos := flag4bits.QoS()
		if !qos.IsValid() {
			return errors.WithMessage(ErrInvalidQoS, "PUBLISH QoS3 is reserved [MQTT-3.3.1-4]")
		}
		if flag4bits.Dup() && qos == QoS0 {
			return errQoS0NoDup
		}
		return nil
	}
	expect := p.reservedFlags()
	if flag4bits == expect {
		return nil
	}
	if expect == flagsPubrelSubUnsub {
		return errors.WithMessagef(ErrInvalidFlags, "%s control packet bits must be 0b0010", p)
	}
	return errors.WithMessagef(ErrInvalidFlags, "%s expected 0b0000 flags", p)
}

// String returns a string representation of the packet type, stylized with all caps
// i.e: "PUBREL", "CONNECT". Does not allocate memory.
func (p PacketType) String() string {
	if p > 15 {
		return "impossible packet type value" // Exceeds 4 bit value.
	}
	var s string
	switch p {
	case PacketConnect:
		s = "CONNECT"
	case PacketConnack:
		s = "CONNACK"
	case PacketPuback:
		s = "PUBACK"
	case PacketPubcomp:
		s = "PUBCOMP"
	case PacketPublish:
		s = "PUBLISH"
	case PacketPubrec:
		s = "PUBREC"
	case PacketPubrel:
		s = "PUBREL"
	case PacketSubscribe:
		s = "SUBSCRIBE"
	case PacketUnsubscribe:
		s = "UNSUBSCRIBE"
	case PacketUnsuback:
		s = "UNSUBACK"
	case PacketSuback:
		s = "SUBACK"
	case PacketPingresp:
		s = "PINGRESP"
	case PacketPingreq:
		s = "PINGREQ"
	case PacketDisconnect:
		s = "DISCONNECT"
	default:
		s = "forbidden/reserved packet type"
	}
	return s
}

// QoSLevel defined in definitions.go

// IsValid returns true if qos is a valid Quality of Service.
func (qos QoSLevel) IsValid() bool { return qos <= QoS2 }

// String returns a pretty-string representation of qos i.e: "QoS0". Does not allocate memory.
func (qos QoSLevel) String() (s string) {
	switch qos {
	case QoS0:
		s = "QoS0"
	case QoS1:
		s = "QoS1"
	case QoS2:
		s = "QoS2"
	case QoSSubfail:
		s = "QoS subscribe failure"
	case reservedQoS3:
		s = "invalid: use of reserved QoS3"
	default:
		s = "undefined QoS"
	}
	return s
}

// ConnectReturnCode defined in definitions.go

// IsValid returns true if rc is one of the return codes defined by MQTT v3.1.1.
func (rc ConnectReturnCode) IsValid() bool { return rc < minInvalidReturnCode }

// String returns a pretty-string representation of rc indicating if
// the connection was accepted or the human-readable error if present.
func (rc ConnectReturnCode) String() (s string) {
	switch rc {
	default:
		s = "unknown CONNACK return code"
	case ReturnCodeConnAccepted:
		s = "connection accepted"
	case ReturnCodeUnnaceptableProtocol:
		s = "unacceptable protocol version"
	case ReturnCodeIdentifierRejected:
		s = "client identifier rejected"
	case ReturnCodeServerUnavailable:
		s = "server unavailable"
	case ReturnCodeBadUserCredentials:
		s = "bad username and/or password"
	case ReturnCodeUnauthorized:
		s = "client unauthorized"
	}
	return s
}

// bool to uint8
//
//go:inline
func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
