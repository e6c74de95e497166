package mqtt

import (
	"bytes"

	"github.com/pkg/errors"
)

// Connect is the first packet sent by a Client after it establishes a network
// connection to a Server. All strings must be UTF-8 encoded except the password
// and the will message which may be binary data.
//
// Optional fields are absent when nil. A non-nil zero length Username or
// Password is encoded as present and empty.
type Connect struct {
	// Protocol name. Left nil it is encoded as "MQTT", the only name accepted by this package.
	Protocol []byte
	// Left as 0 it is encoded as protocol level 4 (MQTT v3.1.1).
	ProtocolLevel byte
	CleanSession  bool
	// KeepAlive is a interval measured in seconds. it is the maximum time interval that is
	// permitted to elapse between the point at which the Client finishes transmitting one
	// Control Packet and the point it starts sending the next.
	KeepAlive uint16
	// Must be present and unique to the server. UTF-8 encoded string
	// between 1 and 23 bytes in length although some servers may allow larger ClientIDs.
	ClientID []byte
	// Will is published by the server when the client disconnects ungracefully.
	Will     *Will
	Username []byte
	// For password to be used username must also be set. See [MQTT-3.1.2-22].
	Password []byte
}

// Will is the last will message of a CONNECT packet.
type Will struct {
	Topic   []byte
	Message []byte
	// QoS level to be used when publishing the Will Message.
	QoS QoSLevel
	// Retain specifies if the Will Message is to be Retained when it is published.
	Retain bool
}

// NewConnect returns a CONNECT packet with the default protocol name and level.
func NewConnect(keepAlive uint16, cleanSession bool, clientID []byte) Connect {
	return Connect{
		Protocol:      []byte(defaultProtocol),
		ProtocolLevel: defaultProtocolLevel,
		CleanSession:  cleanSession,
		KeepAlive:     keepAlive,
		ClientID:      clientID,
	}
}

// SetDefaultMQTT sets required fields, like the ClientID, Protocol and Protocol level fields.
// If KeepAlive is zero, is set to 60 (one minute). If Protocol field is not set to "MQTT" then memory is allocated for it.
func (c *Connect) SetDefaultMQTT(clientID []byte) {
	c.ClientID = clientID
	if string(c.Protocol) != defaultProtocol {
		c.Protocol = []byte(defaultProtocol)
	}
	c.ProtocolLevel = defaultProtocolLevel
	if c.KeepAlive == 0 {
		c.KeepAlive = defaultKeepAlive
	}
}

// WithWill returns a copy of c carrying a will message.
func (c Connect) WithWill(topic, message []byte, qos QoSLevel, retain bool) Connect {
	c.Will = &Will{Topic: topic, Message: message, QoS: qos, Retain: retain}
	return c
}

// WithCredentials returns a copy of c carrying a username and an optional password.
func (c Connect) WithCredentials(username, password []byte) Connect {
	c.Username = username
	c.Password = password
	return c
}

func (Connect) Type() PacketType   { return PacketConnect }
func (Connect) flags() PacketFlags { return 0 }
func (c Connect) Size() int        { return bodySize(c) }

// Flags returns the connect flags byte of the CONNECT variable header.
func (c Connect) Flags() byte {
	flags := b2u8(c.Username != nil)<<7 | b2u8(c.Password != nil)<<6 | b2u8(c.CleanSession)<<1
	if c.Will != nil {
		flags |= b2u8(c.Will.Retain)<<5 | byte(c.Will.QoS&0b11)<<3 | 1<<2
	}
	return flags
}

// Validate returns an error if c can not be encoded as a valid CONNECT packet.
// Protocol and ProtocolLevel must be set, see NewConnect and SetDefaultMQTT.
func (c Connect) Validate() error {
	if string(c.Protocol) != defaultProtocol || c.ProtocolLevel != defaultProtocolLevel {
		return errors.WithMessagef(ErrUnsupportedProtocol, "%q level %d", c.Protocol, c.ProtocolLevel)
	}
	if c.Password != nil && c.Username == nil {
		return errors.WithMessage(ErrInvalidFlags, "username flag must be set to use password flag [MQTT-3.1.2-22]")
	}
	if c.Will != nil && !c.Will.QoS.IsValid() {
		return errors.WithMessage(ErrInvalidQoS, "will QoS")
	}
	return nil
}

func (c Connect) body(w *writer) {
	if w.sizing() {
		if err := c.Validate(); err != nil {
			w.fail(err)
		}
	}
	w.string(c.Protocol)
	w.byte(c.ProtocolLevel)
	w.byte(c.Flags())
	w.uint16(c.KeepAlive)
	w.string(c.ClientID)
	if c.Will != nil {
		w.string(c.Will.Topic)
		w.binary(c.Will.Message)
	}
	if c.Username != nil {
		w.string(c.Username)
	}
	if c.Password != nil {
		w.binary(c.Password)
	}
}

func decodeConnect(w *window) (Connect, error) {
	var c Connect
	var err error
	c.Protocol, err = w.string()
	if err != nil {
		return Connect{}, err
	}
	c.ProtocolLevel, err = w.byte()
	if err != nil {
		return Connect{}, err
	}
	if string(c.Protocol) != defaultProtocol || c.ProtocolLevel != defaultProtocolLevel {
		return Connect{}, errors.WithMessagef(ErrUnsupportedProtocol, "%q level %d", c.Protocol, c.ProtocolLevel)
	}
	flags, err := w.byte()
	if err != nil {
		return Connect{}, err
	}
	if flags&1 != 0 { // [MQTT-3.1.2-3].
		return Connect{}, errors.WithMessage(ErrInvalidFlags, "reserved bit set in CONNECT flags")
	}
	userNameFlag := flags&(1<<7) != 0
	passwordFlag := flags&(1<<6) != 0
	willRetain := flags&(1<<5) != 0
	willQoS := QoSLevel(flags>>3) & 0b11
	willFlag := flags&(1<<2) != 0
	c.CleanSession = flags&(1<<1) != 0
	switch {
	case passwordFlag && !userNameFlag:
		return Connect{}, errors.WithMessage(ErrInvalidFlags, "username flag must be set to use password flag [MQTT-3.1.2-22]")
	case !willFlag && (willRetain || willQoS != QoS0):
		return Connect{}, errors.WithMessage(ErrInvalidFlags, "will QoS and retain must be 0 without will flag [MQTT-3.1.2-13]")
	case !willQoS.IsValid():
		return Connect{}, errors.WithMessage(ErrInvalidQoS, "will QoS")
	}
	c.KeepAlive, err = w.uint16()
	if err != nil {
		return Connect{}, err
	}
	c.ClientID, err = w.string()
	if err != nil {
		return Connect{}, err
	}
	if willFlag {
		will := Will{QoS: willQoS, Retain: willRetain}
		will.Topic, err = w.string()
		if err != nil {
			return Connect{}, err
		}
		will.Message, err = w.binary()
		if err != nil {
			return Connect{}, err
		}
		c.Will = &will
	}
	// Username and Password are non-nil when present, even if empty.
	if userNameFlag {
		c.Username, err = w.string()
		if err != nil {
			return Connect{}, err
		}
		if c.Username == nil {
			c.Username = []byte{}
		}
	}
	if passwordFlag {
		c.Password, err = w.binary()
		if err != nil {
			return Connect{}, err
		}
		if c.Password == nil {
			c.Password = []byte{}
		}
	}
	return c, nil
}

// Connack is sent by the Server in response to a CONNECT packet.
type Connack struct {
	// SessionPresent indicates whether the ClientID already has a session on the server.
	//   - If server accepts a connection with CleanSession set to 1 the server MUST set SP to 0 (false).
	//   - If server accepts a connection with CleanSession set to 0 SP depends on whether the server
	//     already has stored a Session state for the supplied Client ID.
	//
	// If the CONNACK return code is non-zero then SP MUST set to 0.
	SessionPresent bool
	ReturnCode     ConnectReturnCode
}

func (Connack) Type() PacketType   { return PacketConnack }
func (Connack) flags() PacketFlags { return 0 }
func (Connack) Size() int          { return 2 }

// String returns a pretty-string representation of the CONNACK packet.
func (c Connack) String() string {
	s := "CONNACK: " + c.ReturnCode.String()
	if c.SessionPresent {
		s += " (session present)"
	}
	return s
}

func (c Connack) validate() error {
	if !c.ReturnCode.IsValid() {
		return errors.WithMessagef(ErrInvalidValue, "CONNACK return code %d", uint8(c.ReturnCode))
	}
	if c.SessionPresent && c.ReturnCode != ReturnCodeConnAccepted {
		return errors.WithMessage(ErrInvalidValue, "session present with non-zero return code [MQTT-3.2.2-4]")
	}
	return nil
}

func (c Connack) body(w *writer) {
	if w.sizing() {
		if err := c.validate(); err != nil {
			w.fail(err)
		}
	}
	w.byte(b2u8(c.SessionPresent))
	w.byte(byte(c.ReturnCode))
}

func decodeConnack(w *window) (Connack, error) {
	ackFlags, err := w.byte()
	if err != nil {
		return Connack{}, err
	}
	rc, err := w.byte()
	if err != nil {
		return Connack{}, err
	}
	if ackFlags&^1 != 0 {
		return Connack{}, errors.WithMessage(ErrInvalidValue, "CONNACK ack flag bits 7-1 must be set to 0")
	}
	c := Connack{SessionPresent: ackFlags&1 != 0, ReturnCode: ConnectReturnCode(rc)}
	if err = c.validate(); err != nil {
		return Connack{}, err
	}
	return c, nil
}

// Publish transports an Application Message from a Client to a Server or from a Server to a Client.
type Publish struct {
	Dup    bool
	QoS    QoSLevel
	Retain bool
	// Must be present as utf-8 encoded string with NO wildcard characters.
	TopicName []byte
	// Only present (non-zero) in QoS level 1 or 2.
	PacketIdentifier uint16
	// Payload is the Application Message, the rest of the packet after the variable header.
	Payload []byte
}

// NewPublish returns a QoS0 PUBLISH packet.
func NewPublish(topic, payload []byte) Publish {
	return Publish{TopicName: topic, Payload: payload}
}

// WithQoS returns a copy of p with the given QoS and packet identifier.
func (p Publish) WithQoS(qos QoSLevel, packetIdentifier uint16) Publish {
	p.QoS = qos
	p.PacketIdentifier = packetIdentifier
	return p
}

func (Publish) Type() PacketType { return PacketPublish }
func (p Publish) Size() int      { return bodySize(p) }
func (p Publish) flags() PacketFlags {
	return PacketFlags(b2u8(p.Retain) | b2u8(p.Dup)<<3 | uint8(p.QoS&0b11)<<1)
}

// Validate returns an error if p can not be encoded as a valid PUBLISH packet.
func (p Publish) Validate() error {
	if !p.QoS.IsValid() {
		return ErrInvalidQoS
	}
	if p.Dup && p.QoS == QoS0 {
		return errQoS0NoDup
	}
	if p.QoS == QoS0 && p.PacketIdentifier != 0 {
		return errors.WithMessage(ErrInvalidPacketIdentifier, "QoS0 PUBLISH has no packet identifier [MQTT-2.3.1-5]")
	}
	return validateTopicName(p.TopicName)
}

func (p Publish) body(w *writer) {
	if w.sizing() {
		if err := p.Validate(); err != nil {
			w.fail(err)
		}
	}
	w.string(p.TopicName)
	if p.QoS != QoS0 {
		w.packetIdentifier(p.PacketIdentifier)
	}
	w.write(p.Payload)
}

func decodePublish(w *window, flags PacketFlags) (Publish, error) {
	p := Publish{Dup: flags.Dup(), QoS: flags.QoS(), Retain: flags.Retain()}
	var err error
	p.TopicName, err = w.string()
	if err != nil {
		return Publish{}, err
	}
	if err = validateTopicName(p.TopicName); err != nil {
		return Publish{}, err
	}
	if p.QoS != QoS0 {
		p.PacketIdentifier, err = w.packetIdentifier()
		if err != nil {
			return Publish{}, err
		}
	}
	p.Payload, err = w.rest()
	if err != nil {
		return Publish{}, err
	}
	return p, nil
}

// validateTopicName checks a PUBLISH topic name, which must be non-empty and
// must not contain wildcards [MQTT-3.3.2-2].
func validateTopicName(topic []byte) error {
	if len(topic) == 0 {
		return errors.WithMessage(ErrInvalidTopic, "empty topic name")
	}
	if bytes.ContainsAny(topic, "+#") {
		return errors.WithMessagef(ErrInvalidTopic, "wildcard in topic name %q", topic)
	}
	return nil
}

// Subscribe is sent from the Client to the Server to create one or more Subscriptions.
type Subscribe struct {
	PacketIdentifier uint16
	TopicFilters     []SubscribeRequest
}

// SubscribeRequest is relevant only to SUBSCRIBE packets where several SubscribeRequest
// each encode a topic filter that is to be matched on the server side and a desired
// QoS for each matched topic.
type SubscribeRequest struct {
	// utf8 encoded topic or match pattern for topic filter.
	TopicFilter []byte
	// The desired QoS level.
	QoS QoSLevel
}

func (Subscribe) Type() PacketType   { return PacketSubscribe }
func (Subscribe) flags() PacketFlags { return flagsPubrelSubUnsub }
func (s Subscribe) Size() int        { return bodySize(s) }

// Validate returns an error if s can not be encoded as a valid SUBSCRIBE packet.
func (s Subscribe) Validate() error {
	if len(s.TopicFilters) == 0 {
		return errors.WithMessage(ErrInvalidTopic, "SUBSCRIBE must contain at least one topic filter [MQTT-3.8.3-3]")
	}
	for _, v := range s.TopicFilters {
		if !v.QoS.IsValid() {
			return errors.WithMessagef(ErrInvalidQoS, "topic filter %q", v.TopicFilter)
		} else if len(v.TopicFilter) == 0 {
			return errors.WithMessage(ErrInvalidTopic, "empty topic filter")
		}
	}
	return nil
}

func (s Subscribe) body(w *writer) {
	if w.sizing() {
		if err := s.Validate(); err != nil {
			w.fail(err)
		}
	}
	w.packetIdentifier(s.PacketIdentifier)
	for _, hotTopic := range s.TopicFilters {
		w.string(hotTopic.TopicFilter)
		w.byte(byte(hotTopic.QoS & 0b11))
	}
}

func decodeSubscribe(w *window) (s Subscribe, err error) {
	s.PacketIdentifier, err = w.packetIdentifier()
	if err != nil {
		return Subscribe{}, err
	}
	for !w.empty() {
		hotTopic, err := w.string()
		if err != nil {
			return Subscribe{}, err
		}
		qos, err := w.byte()
		if err != nil {
			return Subscribe{}, err
		}
		if qos&^0b11 != 0 {
			return Subscribe{}, errors.WithMessage(ErrInvalidValue, "reserved bits set in requested QoS [MQTT-3.8.3-4]")
		}
		req := SubscribeRequest{TopicFilter: hotTopic, QoS: QoSLevel(qos)}
		if !req.QoS.IsValid() {
			return Subscribe{}, ErrInvalidQoS
		}
		if len(req.TopicFilter) == 0 {
			return Subscribe{}, errors.WithMessage(ErrInvalidTopic, "empty topic filter")
		}
		s.TopicFilters = append(s.TopicFilters, req)
	}
	if len(s.TopicFilters) == 0 {
		return Subscribe{}, errors.WithMessage(ErrInvalidTopic, "SUBSCRIBE must contain at least one topic filter [MQTT-3.8.3-3]")
	}
	return s, nil
}

// Suback is sent by the Server to the Client to confirm receipt and processing of a SUBSCRIBE packet.
type Suback struct {
	PacketIdentifier uint16
	// Each return code corresponds to a topic filter in the SUBSCRIBE
	// packet being acknowledged. These MUST match the order of said SUBSCRIBE packet.
	// A return code can indicate failure using QoSSubfail.
	ReturnCodes []QoSLevel
}

func (Suback) Type() PacketType   { return PacketSuback }
func (Suback) flags() PacketFlags { return 0 }
func (s Suback) Size() int        { return 2 + len(s.ReturnCodes) }

// Validate returns an error if s can not be encoded as a valid SUBACK packet.
func (s Suback) Validate() error {
	for _, rc := range s.ReturnCodes {
		if !rc.IsValid() && rc != QoSSubfail {
			return errors.WithMessagef(ErrInvalidQoS, "SUBACK return code 0x%x", uint8(rc))
		}
	}
	return nil
}

func (s Suback) body(w *writer) {
	if w.sizing() {
		if err := s.Validate(); err != nil {
			w.fail(err)
		}
	}
	w.packetIdentifier(s.PacketIdentifier)
	for _, rc := range s.ReturnCodes {
		w.byte(byte(rc))
	}
}

func decodeSuback(w *window) (s Suback, err error) {
	s.PacketIdentifier, err = w.packetIdentifier()
	if err != nil {
		return Suback{}, err
	}
	codes, err := w.next(w.n)
	if err != nil {
		return Suback{}, err
	}
	for _, rc := range codes {
		s.ReturnCodes = append(s.ReturnCodes, QoSLevel(rc))
	}
	if err = s.Validate(); err != nil {
		return Suback{}, err
	}
	return s, nil
}

// Unsubscribe is sent by the Client to the Server to unsubscribe from topics.
type Unsubscribe struct {
	PacketIdentifier uint16
	Topics           [][]byte
}

func (Unsubscribe) Type() PacketType   { return PacketUnsubscribe }
func (Unsubscribe) flags() PacketFlags { return flagsPubrelSubUnsub }
func (u Unsubscribe) Size() int        { return bodySize(u) }

// Validate returns an error if u can not be encoded as a valid UNSUBSCRIBE packet.
func (u Unsubscribe) Validate() error {
	if len(u.Topics) == 0 {
		return errors.WithMessage(ErrInvalidTopic, "UNSUBSCRIBE must contain at least one topic filter [MQTT-3.10.3-2]")
	}
	for _, coldTopic := range u.Topics {
		if len(coldTopic) == 0 {
			return errors.WithMessage(ErrInvalidTopic, "empty topic filter")
		}
	}
	return nil
}

func (u Unsubscribe) body(w *writer) {
	if w.sizing() {
		if err := u.Validate(); err != nil {
			w.fail(err)
		}
	}
	w.packetIdentifier(u.PacketIdentifier)
	for _, coldTopic := range u.Topics {
		w.string(coldTopic)
	}
}

func decodeUnsubscribe(w *window) (u Unsubscribe, err error) {
	u.PacketIdentifier, err = w.packetIdentifier()
	if err != nil {
		return Unsubscribe{}, err
	}
	for !w.empty() {
		coldTopic, err := w.string()
		if err != nil {
			return Unsubscribe{}, err
		}
		u.Topics = append(u.Topics, coldTopic)
	}
	if err = u.Validate(); err != nil {
		return Unsubscribe{}, err
	}
	return u, nil
}
