// Package document converts MQTT packets to and from a flat representation
// that can be serialized as JSON or MessagePack and read by humans.
package document

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	mqtt "github.com/soypat/mqttwire"
)

// Document describes a single packet. Fields that do not apply to Type are left empty.
type Document struct {
	Type             string `json:"type" msgpack:"t"`
	PacketIdentifier uint16 `json:"packet_id,omitempty" msgpack:"pi,omitempty"`

	// CONNECT
	ClientID     string  `json:"client_id,omitempty" msgpack:"cid,omitempty"`
	KeepAlive    uint16  `json:"keep_alive,omitempty" msgpack:"ka,omitempty"`
	CleanSession bool    `json:"clean_session,omitempty" msgpack:"cs,omitempty"`
	Will         *Will   `json:"will,omitempty" msgpack:"w,omitempty"`
	Username     *string `json:"username,omitempty" msgpack:"u,omitempty"`
	Password     *[]byte `json:"password,omitempty" msgpack:"pw,omitempty"`

	// CONNACK
	SessionPresent bool  `json:"session_present,omitempty" msgpack:"sp,omitempty"`
	ReturnCode     uint8 `json:"return_code,omitempty" msgpack:"rc,omitempty"`

	// PUBLISH
	Dup     bool   `json:"dup,omitempty" msgpack:"d,omitempty"`
	QoS     uint8  `json:"qos,omitempty" msgpack:"q,omitempty"`
	Retain  bool   `json:"retain,omitempty" msgpack:"r,omitempty"`
	Topic   string `json:"topic,omitempty" msgpack:"tp,omitempty"`
	Payload []byte `json:"payload,omitempty" msgpack:"p,omitempty"`

	// SUBSCRIBE, SUBACK and UNSUBSCRIBE
	Filters     []Filter `json:"filters,omitempty" msgpack:"f,omitempty"`
	ReturnCodes []uint8  `json:"return_codes,omitempty" msgpack:"rcs,omitempty"`
	Topics      []string `json:"topics,omitempty" msgpack:"ts,omitempty"`
}

type Will struct {
	Topic   string `json:"topic" msgpack:"tp"`
	Message []byte `json:"message" msgpack:"m"`
	QoS     uint8  `json:"qos,omitempty" msgpack:"q,omitempty"`
	Retain  bool   `json:"retain,omitempty" msgpack:"r,omitempty"`
}

type Filter struct {
	Topic string `json:"topic" msgpack:"tp"`
	QoS   uint8  `json:"qos" msgpack:"q"`
}

// FromPacket returns the document describing p.
func FromPacket(p mqtt.Packet) Document {
	d := Document{Type: p.Type().String()}
	switch p := p.(type) {
	case mqtt.Connect:
		d.ClientID = string(p.ClientID)
		d.KeepAlive = p.KeepAlive
		d.CleanSession = p.CleanSession
		if p.Will != nil {
			d.Will = &Will{
				Topic:   string(p.Will.Topic),
				Message: p.Will.Message,
				QoS:     uint8(p.Will.QoS),
				Retain:  p.Will.Retain,
			}
		}
		if p.Username != nil {
			username := string(p.Username)
			d.Username = &username
		}
		if p.Password != nil {
			password := p.Password
			d.Password = &password
		}
	case mqtt.Connack:
		d.SessionPresent = p.SessionPresent
		d.ReturnCode = uint8(p.ReturnCode)
	case mqtt.Publish:
		d.Dup = p.Dup
		d.QoS = uint8(p.QoS)
		d.Retain = p.Retain
		d.Topic = string(p.TopicName)
		d.PacketIdentifier = p.PacketIdentifier
		d.Payload = p.Payload
	case mqtt.Subscribe:
		d.PacketIdentifier = p.PacketIdentifier
		for _, req := range p.TopicFilters {
			d.Filters = append(d.Filters, Filter{Topic: string(req.TopicFilter), QoS: uint8(req.QoS)})
		}
	case mqtt.Suback:
		d.PacketIdentifier = p.PacketIdentifier
		for _, rc := range p.ReturnCodes {
			d.ReturnCodes = append(d.ReturnCodes, uint8(rc))
		}
	case mqtt.Unsubscribe:
		d.PacketIdentifier = p.PacketIdentifier
		for _, topic := range p.Topics {
			d.Topics = append(d.Topics, string(topic))
		}
	case mqtt.Puback:
		d.PacketIdentifier = p.PacketIdentifier
	case mqtt.Pubrec:
		d.PacketIdentifier = p.PacketIdentifier
	case mqtt.Pubrel:
		d.PacketIdentifier = p.PacketIdentifier
	case mqtt.Pubcomp:
		d.PacketIdentifier = p.PacketIdentifier
	case mqtt.Unsuback:
		d.PacketIdentifier = p.PacketIdentifier
	case mqtt.Pingreq, mqtt.Pingresp, mqtt.Disconnect:
	}
	return d
}

// Packet returns the packet described by d. The packet is not validated,
// Encode reports invalid field values.
func (d Document) Packet() (mqtt.Packet, error) {
	switch strings.ToUpper(d.Type) {
	case "CONNECT":
		c := mqtt.NewConnect(d.KeepAlive, d.CleanSession, []byte(d.ClientID))
		if d.Will != nil {
			c = c.WithWill([]byte(d.Will.Topic), d.Will.Message, mqtt.QoSLevel(d.Will.QoS), d.Will.Retain)
		}
		if d.Username != nil {
			c.Username = []byte(*d.Username)
		}
		if d.Password != nil {
			c.Password = nonNil(*d.Password)
		}
		return c, nil
	case "CONNACK":
		return mqtt.Connack{SessionPresent: d.SessionPresent, ReturnCode: mqtt.ConnectReturnCode(d.ReturnCode)}, nil
	case "PUBLISH":
		return mqtt.Publish{
			Dup:              d.Dup,
			QoS:              mqtt.QoSLevel(d.QoS),
			Retain:           d.Retain,
			TopicName:        []byte(d.Topic),
			PacketIdentifier: d.PacketIdentifier,
			Payload:          d.Payload,
		}, nil
	case "SUBSCRIBE":
		s := mqtt.Subscribe{PacketIdentifier: d.PacketIdentifier}
		for _, f := range d.Filters {
			s.TopicFilters = append(s.TopicFilters, mqtt.SubscribeRequest{TopicFilter: []byte(f.Topic), QoS: mqtt.QoSLevel(f.QoS)})
		}
		return s, nil
	case "SUBACK":
		s := mqtt.Suback{PacketIdentifier: d.PacketIdentifier}
		for _, rc := range d.ReturnCodes {
			s.ReturnCodes = append(s.ReturnCodes, mqtt.QoSLevel(rc))
		}
		return s, nil
	case "UNSUBSCRIBE":
		u := mqtt.Unsubscribe{PacketIdentifier: d.PacketIdentifier}
		for _, topic := range d.Topics {
			u.Topics = append(u.Topics, []byte(topic))
		}
		return u, nil
	case "PUBACK":
		return mqtt.Puback{PacketIdentifier: d.PacketIdentifier}, nil
	case "PUBREC":
		return mqtt.Pubrec{PacketIdentifier: d.PacketIdentifier}, nil
	case "PUBREL":
		return mqtt.Pubrel{PacketIdentifier: d.PacketIdentifier}, nil
	case "PUBCOMP":
		return mqtt.Pubcomp{PacketIdentifier: d.PacketIdentifier}, nil
	case "UNSUBACK":
		return mqtt.Unsuback{PacketIdentifier: d.PacketIdentifier}, nil
	case "PINGREQ":
		return mqtt.Pingreq{}, nil
	case "PINGRESP":
		return mqtt.Pingresp{}, nil
	case "DISCONNECT":
		return mqtt.Disconnect{}, nil
	}
	return nil, errors.WithMessagef(mqtt.ErrUnknownPacketType, "document type %q", d.Type)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// String returns a single line description of d.
func (d Document) String() string {
	var sb strings.Builder
	sb.WriteString(d.Type)
	if d.PacketIdentifier != 0 {
		fmt.Fprintf(&sb, " pi=%d", d.PacketIdentifier)
	}
	switch d.Type {
	case "CONNECT":
		fmt.Fprintf(&sb, " client_id=%q keep_alive=%d clean_session=%t", d.ClientID, d.KeepAlive, d.CleanSession)
		if d.Will != nil {
			fmt.Fprintf(&sb, " will=%q/QoS%d retain=%t (%d bytes)", d.Will.Topic, d.Will.QoS, d.Will.Retain, len(d.Will.Message))
		}
		if d.Username != nil {
			fmt.Fprintf(&sb, " username=%q", *d.Username)
		}
		if d.Password != nil {
			sb.WriteString(" password=***")
		}
	case "CONNACK":
		fmt.Fprintf(&sb, " %s session_present=%t", mqtt.ConnectReturnCode(d.ReturnCode), d.SessionPresent)
	case "PUBLISH":
		fmt.Fprintf(&sb, " topic=%q QoS%d", d.Topic, d.QoS)
		if d.Dup {
			sb.WriteString(" dup")
		}
		if d.Retain {
			sb.WriteString(" retain")
		}
		fmt.Fprintf(&sb, " payload=%q", d.Payload)
	case "SUBSCRIBE":
		for _, f := range d.Filters {
			fmt.Fprintf(&sb, " %q/QoS%d", f.Topic, f.QoS)
		}
	case "SUBACK":
		for _, rc := range d.ReturnCodes {
			fmt.Fprintf(&sb, " %s", mqtt.QoSLevel(rc))
		}
	case "UNSUBSCRIBE":
		for _, topic := range d.Topics {
			fmt.Fprintf(&sb, " %q", topic)
		}
	}
	return sb.String()
}

// Encoder writes documents to a stream in one of the config formats.
type Encoder struct {
	w      io.Writer
	format string
	json   *json.Encoder
	mp     *msgpack.Encoder
}

func NewEncoder(w io.Writer, format string) (*Encoder, error) {
	e := &Encoder{w: w, format: format}
	switch format {
	case "text":
	case "json":
		e.json = json.NewEncoder(w)
	case "msgpack":
		e.mp = msgpack.NewEncoder(w)
	default:
		return nil, errors.Errorf("unsupported document format %q", format)
	}
	return e, nil
}

func (e *Encoder) Encode(d Document) error {
	switch {
	case e.json != nil:
		return e.json.Encode(d)
	case e.mp != nil:
		return e.mp.Encode(d)
	}
	_, err := io.WriteString(e.w, d.String()+"\n")
	return err
}

// Decoder reads a stream of JSON or MessagePack documents.
type Decoder struct {
	json *json.Decoder
	mp   *msgpack.Decoder
}

func NewDecoder(r io.Reader, format string) (*Decoder, error) {
	switch format {
	case "json":
		return &Decoder{json: json.NewDecoder(r)}, nil
	case "msgpack":
		return &Decoder{mp: msgpack.NewDecoder(r)}, nil
	}
	return nil, errors.Errorf("unsupported document format %q", format)
}

// Decode reads the next document. It returns io.EOF at the end of the stream.
func (dec *Decoder) Decode() (d Document, err error) {
	if dec.json != nil {
		err = dec.json.Decode(&d)
	} else {
		err = dec.mp.Decode(&d)
	}
	return d, err
}
