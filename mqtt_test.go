package mqtt

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"testing"
)

const (
	qos0Flag = PacketFlags(QoS0 << 1)
	qos1Flag = PacketFlags(QoS1 << 1)
	qos2Flag = PacketFlags(QoS2 << 1)
)

func TestHasPacketIdentifer(t *testing.T) {
	for _, test := range []struct {
		h      Header
		expect bool
	}{
		{h: newHeader(PacketConnect, 0, 0), expect: false},
		{h: newHeader(PacketConnack, 0, 0), expect: false},
		{h: newHeader(PacketPublish, qos0Flag, 0), expect: false},
		{h: newHeader(PacketPublish, qos1Flag, 0), expect: true},
		{h: newHeader(PacketPublish, qos2Flag, 0), expect: true},
		{h: newHeader(PacketPuback, 0, 0), expect: true},
		{h: newHeader(PacketPubrec, 0, 0), expect: true},
		{h: newHeader(PacketPubrel, 0, 0), expect: true},
		{h: newHeader(PacketPubcomp, 0, 0), expect: true},
		{h: newHeader(PacketSubscribe, 0, 0), expect: true},
		{h: newHeader(PacketSuback, 0, 0), expect: true},
		{h: newHeader(PacketUnsubscribe, 0, 0), expect: true},
		{h: newHeader(PacketUnsuback, 0, 0), expect: true},
		{h: newHeader(PacketPingreq, 0, 0), expect: false},
		{h: newHeader(PacketPingresp, 0, 0), expect: false},
		{h: newHeader(PacketDisconnect, 0, 0), expect: false},
		{h: newHeader(0, 0, 0), expect: false},
		{h: newHeader(15, 0, 0), expect: false},
	} {
		got := test.h.HasPacketIdentifier()
		if got != test.expect {
			t.Errorf("%s: got %v, expected %v", test.h.String(), got, test.expect)
		}
	}
}

func TestHeaderSize(t *testing.T) {
	for _, test := range []struct {
		remlen uint32
		expect int
	}{
		{0, 2},
		{127, 2},
		{128, 3},
		{16383, 3},
		{16384, 4},
		{2097151, 4},
		{2097152, 5},
		{MaxRemainingLength, 5},
		{MaxRemainingLength + 1, 0},
		{math.MaxUint32, 0},
	} {
		got := newHeader(PacketPublish, 0, test.remlen).Size()
		if got != test.expect {
			t.Errorf("remaining length %d: got size %d, expected %d", test.remlen, got, test.expect)
		}
	}
}

func TestConnectFlags(t *testing.T) {
	getFlags := func(flag byte) (username, password, willRetain, willFlag, cleanSession, reserved bool, qos QoSLevel) {
		return flag&(1<<7) != 0, flag&(1<<6) != 0, flag&(1<<5) != 0, flag&(1<<2) != 0, flag&(1<<1) != 0, flag&1 != 0, QoSLevel(flag>>3) & 0b11
	}
	var connect Connect
	connect.SetDefaultMQTT([]byte("salamanca"))
	usr, pwd, wR, wF, cs, forbidden, qos := getFlags(connect.Flags())
	if qos != QoS0 {
		t.Error("QoS0 default, got ", qos.String())
	}
	if usr || pwd {
		t.Error("expected no password or user on default flags")
	}
	if wR {
		t.Error("will retain set")
	}
	if wF {
		t.Error("will flag set")
	}
	if cs {
		t.Error("clean session set")
	}
	if forbidden {
		t.Error("forbidden bit set")
	}
	if defaultProtocolLevel != connect.ProtocolLevel {
		t.Error("protocol level mismatch")
	}
	if defaultProtocol != string(connect.Protocol) {
		t.Error("protocol mismatch")
	}
	if connect.KeepAlive != defaultKeepAlive {
		t.Error("keepalive not defaulted")
	}
	connect = connect.WithWill([]byte("inigo/will"), []byte("prepare to die"), QoS2, false)
	connect = connect.WithCredentials([]byte("inigo"), []byte("123"))
	connect.CleanSession = true
	usr, pwd, wR, wF, cs, forbidden, qos = getFlags(connect.Flags())
	if qos != QoS2 {
		t.Error("expected will QoS2, got ", qos.String())
	}
	if !usr {
		t.Error("username flag not ok")
	}
	if !pwd {
		t.Error("password flag not ok")
	}
	if wR {
		t.Error("will retain set")
	}
	if !wF {
		t.Error("will flag not set")
	}
	if !cs {
		t.Error("clean session not set")
	}
	if forbidden {
		t.Error("forbidden bit set")
	}
}

func TestConnectSize(t *testing.T) {
	var connect Connect
	connect.SetDefaultMQTT([]byte("salamanca"))
	connect = connect.WithWill([]byte("great-movies"), []byte("Hello, my name is Inigo Montoya. You killed my father. Prepare to die."), QoS1, true)
	connect = connect.WithCredentials([]byte("Inigo"), []byte("\x00\x01\x02\x03flab\xff\x7f\xff"))
	got := connect.Size()
	var buf GrowBuffer
	err := Encode(&buf, connect)
	if err != nil {
		t.Fatal(err)
	}
	hdr := newHeader(PacketConnect, 0, uint32(got))
	if hdr.Size()+got != buf.Len() {
		t.Errorf("Size returned %d. encoding CONNECT body yielded %d", got, buf.Len()-hdr.Size())
	}
	if Size(connect) != buf.Len() {
		t.Errorf("Size(packet)=%d, encoded %d bytes", Size(connect), buf.Len())
	}
}

// Every packet type's Size must agree with the number of bytes Encode writes.
func TestPacketSizeMatchesEncoding(t *testing.T) {
	for _, p := range typicalPackets() {
		var buf GrowBuffer
		err := Encode(&buf, p)
		if err != nil {
			t.Fatalf("%s: %v", p.Type(), err)
		}
		if Size(p) != buf.Len() {
			t.Errorf("%s: Size=%d, encoded %d bytes", p.Type(), Size(p), buf.Len())
		}
		hdr, err := HeaderOf(p)
		if err != nil {
			t.Fatal(err)
		}
		if int(hdr.RemainingLength) != p.Size() {
			t.Errorf("%s: header remaining length %d, Size %d", p.Type(), hdr.RemainingLength, p.Size())
		}
	}
}

func TestLoopback(t *testing.T) {
	// Packets are written to a "wire" and read back one by one from a reader.
	var wire bytes.Buffer
	packets := typicalPackets()
	for _, p := range packets {
		b, err := AppendPacket(make([]byte, 0, 1500), p)
		if err != nil {
			t.Fatalf("%s: %v", p.Type(), err)
		}
		wire.Write(b)
	}
	rc := ReaderCursor{R: &wire, Buf: make([]byte, 1500)}
	for _, expect := range packets {
		rc.Reset()
		got, err := Decode(&rc)
		if err != nil {
			t.Fatalf("%s: %v", expect.Type(), err)
		}
		if rc.Buffered() != Size(expect) {
			t.Errorf("%s: read %v bytes, expected to read %v bytes", expect.Type(), rc.Buffered(), Size(expect))
		}
		packetEqual(t, expect, got)
	}
	if wire.Len() != 0 {
		t.Errorf("%d bytes left on wire", wire.Len())
	}
	_, err := Decode(&rc)
	if err != ErrTruncated {
		t.Errorf("expected ErrTruncated on empty wire, got %v", err)
	}
}

func TestDecodeCopiesInput(t *testing.T) {
	if borrowsInput {
		t.Skip("decoded fields alias input in this build")
	}
	pub := Publish{QoS: QoS1, TopicName: []byte("inigo/montoya"), PacketIdentifier: 1, Payload: []byte("prepare to die")}
	b, err := AppendPacket(make([]byte, 0, 64), pub)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(NewSliceCursor(b))
	if err != nil {
		t.Fatal(err)
	}
	for i := range b {
		b[i] = 'x'
	}
	packetEqual(t, pub, got)
}

func typicalPackets() []Packet {
	connect := NewConnect(30, true, []byte("0w"))
	return []Packet{
		connect,
		connect.WithWill([]byte("Bw"), []byte("Aw"), QoS1, true).WithCredentials([]byte("Cw"), []byte("Dw")),
		connect.WithCredentials([]byte{}, nil),
		connect.WithCredentials([]byte("u"), []byte{}),
		NewConnect(1, false, nil).WithWill([]byte("w"), nil, QoS0, false),
		Connack{SessionPresent: true, ReturnCode: ReturnCodeConnAccepted},
		Connack{ReturnCode: ReturnCodeBadUserCredentials},
		NewPublish([]byte("now-for-something-completely-different"), nil),
		Publish{
			Dup: true, QoS: QoS1, Retain: true,
			TopicName:        []byte("now-for-something-completely-different"),
			PacketIdentifier: math.MaxUint16,
			Payload:          []byte("ertytgbhjjhundsaip;vf[oniw[aondmiksfvoWDNFOEWOPndsafr;poulikujyhtgbfrvdcsxzaesxt dfcgvfhbg kjnlkm/'."),
		},
		NewPublish([]byte("a"), bytes.Repeat([]byte{0xff}, 200)).WithQoS(QoS2, 1),
		Puback{PacketIdentifier: 1},
		Pubrec{PacketIdentifier: 3232},
		Pubrel{PacketIdentifier: 3232},
		Pubcomp{PacketIdentifier: math.MaxUint16},
		Subscribe{
			PacketIdentifier: math.MaxUint16,
			TopicFilters: []SubscribeRequest{
				{TopicFilter: []byte("favorites"), QoS: QoS2},
				{TopicFilter: []byte("the-clash/+"), QoS: QoS0},
				{TopicFilter: []byte("always-watching/#"), QoS: QoS1},
				{TopicFilter: []byte("k-pop"), QoS: QoS2},
			},
		},
		Suback{PacketIdentifier: 1},
		Suback{
			PacketIdentifier: math.MaxUint16,
			ReturnCodes:      []QoSLevel{QoS0, QoS1, QoS0, QoS2, QoSSubfail, QoS1},
		},
		Unsubscribe{
			PacketIdentifier: math.MaxUint16,
			Topics:           bytes.Fields([]byte("topic1 topic2 topic3 semperfi")),
		},
		Unsuback{PacketIdentifier: 12},
		Pingreq{},
		Pingresp{},
		Disconnect{},
	}
}

// packetEqual errors test if a's fields not equal to b's. Nil and empty
// fields are told apart, so b must be exactly what a decodes to.
func packetEqual(t *testing.T, a, b Packet) {
	t.Helper()
	if a.Type() != b.Type() {
		t.Errorf("packet type mismatch %s != %s", a.Type(), b.Type())
		return
	}
	defer func() {
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s not deeply equal:\n%#v\n%#v", a.Type(), a, b)
		}
	}()
	switch pa := a.(type) {
	case Connect:
		// Make name distinct to pa to catch bugs easier.
		peebee := b.(Connect)
		if pa.CleanSession != peebee.CleanSession {
			t.Error("clean session mismatch")
		}
		if pa.ProtocolLevel != peebee.ProtocolLevel {
			t.Error("protocol level mismatch")
		}
		if pa.KeepAlive != peebee.KeepAlive {
			t.Error("keepalive mismatch")
		}
		if !bytes.Equal(pa.ClientID, peebee.ClientID) {
			t.Error("client id mismatch")
		}
		if !bytes.Equal(pa.Protocol, peebee.Protocol) {
			t.Error("protocol mismatch")
		}
		if (pa.Username == nil) != (peebee.Username == nil) || !bytes.Equal(pa.Username, peebee.Username) {
			t.Errorf("username mismatch %q != %q", pa.Username, peebee.Username)
		}
		if (pa.Password == nil) != (peebee.Password == nil) || !bytes.Equal(pa.Password, peebee.Password) {
			t.Errorf("password mismatch %q != %q", pa.Password, peebee.Password)
		}
		if (pa.Will == nil) != (peebee.Will == nil) {
			t.Error("will presence mismatch")
		} else if pa.Will != nil {
			wa, wb := pa.Will, peebee.Will
			if wa.QoS != wb.QoS || wa.Retain != wb.Retain {
				t.Error("will QoS or retain mismatch")
			}
			if !bytes.Equal(wa.Topic, wb.Topic) {
				t.Error("will topic mismatch")
			}
			if !bytes.Equal(wa.Message, wb.Message) {
				t.Error("will message mismatch")
			}
		}

	case Connack:
		pb := b.(Connack)
		if pa != pb {
			t.Error("CONNACK not equal:", pa, pb)
		}

	case Publish:
		pb := b.(Publish)
		if pa.flags() != pb.flags() {
			t.Errorf("publish flags mismatch %s != %s", pa.flags(), pb.flags())
		}
		if !bytes.Equal(pa.TopicName, pb.TopicName) {
			t.Error("publish topic names mismatch")
		}
		if pa.PacketIdentifier != pb.PacketIdentifier {
			t.Error("packet id mismatch")
		}
		if !bytes.Equal(pa.Payload, pb.Payload) {
			t.Error("got different payloads!")
		}

	case Suback:
		pb := b.(Suback)
		if pa.PacketIdentifier != pb.PacketIdentifier {
			t.Error("SUBACK packet identifier mismatch")
		}
		if len(pa.ReturnCodes) != len(pb.ReturnCodes) {
			t.Fatal("SUBACK return code length mismatch")
		}
		for i, rca := range pa.ReturnCodes {
			rcb := pb.ReturnCodes[i]
			if rca != rcb {
				t.Errorf("SUBACK %dth return code mismatch, %s! = %s", i, rca, rcb)
			}
		}

	case Subscribe:
		pb := b.(Subscribe)
		if pa.PacketIdentifier != pb.PacketIdentifier {
			t.Error("SUBSCRIBE packet identifier mismatch")
		}
		if len(pa.TopicFilters) != len(pb.TopicFilters) {
			t.Fatal("SUBSCRIBE topic filter length mismatch")
		}
		for i, hotopicA := range pa.TopicFilters {
			hotTopicB := pb.TopicFilters[i]
			if hotopicA.QoS != hotTopicB.QoS {
				t.Errorf("SUBSCRIBE %dth QoS mismatch, %s! = %s", i, hotopicA.QoS, hotTopicB.QoS)
			}
			if !bytes.Equal(hotopicA.TopicFilter, hotTopicB.TopicFilter) {
				t.Errorf("SUBSCRIBE %dth topic filter mismatch, %s! = %s", i, string(hotopicA.TopicFilter), string(hotTopicB.TopicFilter))
			}
		}

	case Unsubscribe:
		pb := b.(Unsubscribe)
		if pa.PacketIdentifier != pb.PacketIdentifier {
			t.Error("UNSUBSCRIBE packet identifier mismatch", pa.PacketIdentifier, pb.PacketIdentifier)
		}
		if len(pa.Topics) != len(pb.Topics) {
			t.Fatal("UNSUBSCRIBE topic length mismatch")
		}
		for i, coldtopicA := range pa.Topics {
			coldTopicB := pb.Topics[i]
			if !bytes.Equal(coldtopicA, coldTopicB) {
				t.Errorf("UNSUBSCRIBE %dth topic mismatch, %s! = %s", i, coldtopicA, coldTopicB)
			}
		}

	case Puback, Pubrec, Pubrel, Pubcomp, Unsuback, Pingreq, Pingresp, Disconnect:
		if a != b {
			t.Errorf("%s not equal: %v != %v", a.Type(), a, b)
		}

	default:
		panic(fmt.Sprintf("%T undefined in packetEqual", pa))
	}
}
