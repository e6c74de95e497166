package mqtt

// Packets below carry at most a packet identifier.

// Puback is the response to a PUBLISH packet with QoS level 1.
type Puback struct{ PacketIdentifier uint16 }

// Pubrec is the response to a PUBLISH packet with QoS 2. It is the second packet of the QoS 2 protocol exchange.
type Pubrec struct{ PacketIdentifier uint16 }

// Pubrel is the response to a PUBREC packet. It is the third packet of the QoS 2 protocol exchange.
type Pubrel struct{ PacketIdentifier uint16 }

// Pubcomp is the response to a PUBREL packet. It is the fourth and final packet of the QoS 2 protocol exchange.
type Pubcomp struct{ PacketIdentifier uint16 }

// Unsuback is sent by the Server to the Client to confirm receipt of an UNSUBSCRIBE packet.
type Unsuback struct{ PacketIdentifier uint16 }

// Pingreq is sent from a Client to the Server to signal it is alive and to request a PINGRESP.
type Pingreq struct{}

// Pingresp is sent by the Server to the Client in response to a PINGREQ packet.
type Pingresp struct{}

// Disconnect is the final packet sent from the Client to the Server. It indicates that the Client is disconnecting cleanly.
type Disconnect struct{}

func (Puback) Type() PacketType     { return PacketPuback }
func (Pubrec) Type() PacketType     { return PacketPubrec }
func (Pubrel) Type() PacketType     { return PacketPubrel }
func (Pubcomp) Type() PacketType    { return PacketPubcomp }
func (Unsuback) Type() PacketType   { return PacketUnsuback }
func (Pingreq) Type() PacketType    { return PacketPingreq }
func (Pingresp) Type() PacketType   { return PacketPingresp }
func (Disconnect) Type() PacketType { return PacketDisconnect }

func (Puback) flags() PacketFlags     { return 0 }
func (Pubrec) flags() PacketFlags     { return 0 }
func (Pubrel) flags() PacketFlags     { return flagsPubrelSubUnsub }
func (Pubcomp) flags() PacketFlags    { return 0 }
func (Unsuback) flags() PacketFlags   { return 0 }
func (Pingreq) flags() PacketFlags    { return 0 }
func (Pingresp) flags() PacketFlags   { return 0 }
func (Disconnect) flags() PacketFlags { return 0 }

func (Puback) Size() int     { return 2 }
func (Pubrec) Size() int     { return 2 }
func (Pubrel) Size() int     { return 2 }
func (Pubcomp) Size() int    { return 2 }
func (Unsuback) Size() int   { return 2 }
func (Pingreq) Size() int    { return 0 }
func (Pingresp) Size() int   { return 0 }
func (Disconnect) Size() int { return 0 }

func (p Puback) body(w *writer)   { w.packetIdentifier(p.PacketIdentifier) }
func (p Pubrec) body(w *writer)   { w.packetIdentifier(p.PacketIdentifier) }
func (p Pubrel) body(w *writer)   { w.packetIdentifier(p.PacketIdentifier) }
func (p Pubcomp) body(w *writer)  { w.packetIdentifier(p.PacketIdentifier) }
func (p Unsuback) body(w *writer) { w.packetIdentifier(p.PacketIdentifier) }
func (Pingreq) body(*writer)      {}
func (Pingresp) body(*writer)     {}
func (Disconnect) body(*writer)   {}

// decodeAck decodes the packets that carry nothing but an optional packet identifier.
func decodeAck(w *window, tp PacketType) (Packet, error) {
	var pi uint16
	if tp != PacketPingreq && tp != PacketPingresp && tp != PacketDisconnect {
		var err error
		pi, err = w.packetIdentifier()
		if err != nil {
			return nil, err
		}
	}
	switch tp {
	case PacketPuback:
		return Puback{PacketIdentifier: pi}, nil
	case PacketPubrec:
		return Pubrec{PacketIdentifier: pi}, nil
	case PacketPubrel:
		return Pubrel{PacketIdentifier: pi}, nil
	case PacketPubcomp:
		return Pubcomp{PacketIdentifier: pi}, nil
	case PacketUnsuback:
		return Unsuback{PacketIdentifier: pi}, nil
	case PacketPingreq:
		return Pingreq{}, nil
	case PacketPingresp:
		return Pingresp{}, nil
	case PacketDisconnect:
		return Disconnect{}, nil
	}
	panic("unreachable: decodeAck called with " + tp.String() + ". " + bugReportLink)
}
