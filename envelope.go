package mqtt

import (
	"github.com/pkg/errors"
)

// Packet is an MQTT v3.1.1 control packet. It is implemented by the 14 packet
// types of this package and by no other type:
//
//	Connect, Connack, Publish, Puback, Pubrec, Pubrel, Pubcomp,
//	Subscribe, Suback, Unsubscribe, Unsuback, Pingreq, Pingresp, Disconnect
//
// Use a type switch over these types to handle decoded packets.
type Packet interface {
	// Type returns the packet type encoded in the fixed header.
	Type() PacketType
	// Size returns the Remaining Length of the packet, that is the size on wire
	// of the variable header and payload.
	Size() int
	flags() PacketFlags
	// body writes the variable header and payload of the packet.
	body(w *writer)
}

var (
	_ Packet = Connect{}
	_ Packet = Connack{}
	_ Packet = Publish{}
	_ Packet = Puback{}
	_ Packet = Pubrec{}
	_ Packet = Pubrel{}
	_ Packet = Pubcomp{}
	_ Packet = Subscribe{}
	_ Packet = Suback{}
	_ Packet = Unsubscribe{}
	_ Packet = Unsuback{}
	_ Packet = Pingreq{}
	_ Packet = Pingresp{}
	_ Packet = Disconnect{}
)

var errNilPacket = errors.WithMessage(ErrInvalidValue, "nil packet")

func bodySize(p Packet) int {
	var w writer
	p.body(&w)
	return w.n
}

// Size returns the total size on wire of p including the fixed header.
// It returns 0 if p is nil or too large to be encoded.
func Size(p Packet) int {
	if p == nil {
		return 0
	}
	body := p.Size()
	rlsz := RemainingLengthSize(uint32(body))
	if body > MaxRemainingLength || rlsz == 0 {
		return 0
	}
	return 1 + rlsz + body
}

// HeaderOf returns the fixed header of p.
func HeaderOf(p Packet) (Header, error) {
	if p == nil {
		return Header{}, errNilPacket
	}
	var sizer writer
	p.body(&sizer)
	if sizer.err != nil {
		return Header{}, errors.WithMessage(sizer.err, p.Type().String())
	}
	if sizer.n > MaxRemainingLength {
		return Header{}, errors.WithMessagef(ErrValueTooLarge, "%s remaining length %d", p.Type(), sizer.n)
	}
	return newHeader(p.Type(), p.flags(), uint32(sizer.n)), nil
}

// Encode writes p to s. The packet is validated and sized before anything is
// written, so a packet that can not be represented leaves s untouched. If s runs
// out of capacity midway the bytes already appended to s are undefined and the
// caller should reset s.
func Encode(s Sink, p Packet) error {
	hdr, err := HeaderOf(p)
	if err != nil {
		return err
	}
	if err = hdr.Encode(s); err != nil {
		return errors.WithMessage(err, p.Type().String())
	}
	w := writer{sink: s}
	p.body(&w)
	if w.err != nil {
		return errors.WithMessage(w.err, p.Type().String())
	}
	if w.n != int(hdr.RemainingLength) {
		panic("mqtt: encoded " + p.Type().String() + " body size does not match computed size. " + bugReportLink)
	}
	return nil
}

// Decode reads a single packet from c. On error no packet is returned and c
// is left at an unspecified position, except for the header errors documented
// in DecodeHeader.
func Decode(c Cursor) (Packet, error) {
	hdr, err := DecodeHeader(c)
	if err != nil {
		return nil, err
	}
	return DecodeBody(c, hdr)
}

// DecodeBody reads the variable header and payload of the packet described by
// hdr from c. It reads exactly hdr.RemainingLength bytes when it succeeds.
func DecodeBody(c Cursor, hdr Header) (Packet, error) {
	if err := hdr.Validate(); err != nil {
		return nil, err
	}
	w := window{c: c, n: int(hdr.RemainingLength)}
	var (
		p   Packet
		err error
	)
	switch tp := hdr.Type(); tp {
	case PacketConnect:
		p, err = decodeConnect(&w)
	case PacketConnack:
		p, err = decodeConnack(&w)
	case PacketPublish:
		p, err = decodePublish(&w, hdr.Flags())
	case PacketSubscribe:
		p, err = decodeSubscribe(&w)
	case PacketSuback:
		p, err = decodeSuback(&w)
	case PacketUnsubscribe:
		p, err = decodeUnsubscribe(&w)
	case PacketPuback, PacketPubrec, PacketPubrel, PacketPubcomp, PacketUnsuback,
		PacketPingreq, PacketPingresp, PacketDisconnect:
		p, err = decodeAck(&w, tp)
	default:
		panic("unreachable: header validated. " + bugReportLink)
	}
	if err == nil {
		err = w.done()
	}
	if err != nil {
		return nil, errors.WithMessage(err, hdr.Type().String())
	}
	return p, nil
}
