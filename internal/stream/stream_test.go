package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	mqtt "github.com/soypat/mqttwire"
)

func collect(rx *Rx) *[]mqtt.PacketType {
	var got []mqtt.PacketType
	rx.OnPacket = func(_ *Rx, p mqtt.Packet) error {
		got = append(got, p.Type())
		return nil
	}
	return &got
}

func TestTxRxLoopback(t *testing.T) {
	packets := []mqtt.Packet{
		mqtt.NewConnect(30, true, []byte("stream")),
		mqtt.NewPublish([]byte("a/b"), []byte("hello")).WithQoS(mqtt.QoS1, 7),
		mqtt.Puback{PacketIdentifier: 7},
		mqtt.Subscribe{PacketIdentifier: 8, TopicFilters: []mqtt.SubscribeRequest{{TopicFilter: []byte("a/#"), QoS: mqtt.QoS2}}},
		mqtt.Pingreq{},
		mqtt.Disconnect{},
	}
	var wire bytes.Buffer
	tx := NewTx(&wire, 64, false)
	var want []mqtt.PacketType
	for _, p := range packets {
		n, err := tx.WritePacket(p)
		require.NoError(t, err)
		assert.Equal(t, mqtt.Size(p), n)
		want = append(want, p.Type())
	}
	assert.EqualValues(t, wire.Len(), tx.Written())
	total := wire.Len()

	rx := NewRx(&wire, 256)
	got := collect(rx)
	require.NoError(t, rx.ReadAll())
	assert.Equal(t, want, *got)
	assert.EqualValues(t, total, rx.Offset())
	assert.Equal(t, mqtt.PacketDisconnect, rx.LastReceivedHeader.Type())
}

func TestTxHex(t *testing.T) {
	var out bytes.Buffer
	tx := NewTx(&out, 16, true)
	_, err := tx.WritePacket(mqtt.Pingreq{})
	require.NoError(t, err)
	_, err = tx.WritePacket(mqtt.Puback{PacketIdentifier: 0x0102})
	require.NoError(t, err)
	assert.Equal(t, "c000\n40020102\n", out.String())
}

func TestTxInvalidPacketWritesNothing(t *testing.T) {
	var out bytes.Buffer
	tx := NewTx(&out, 16, false)
	_, err := tx.WritePacket(mqtt.Puback{})
	assert.ErrorIs(t, err, mqtt.ErrInvalidPacketIdentifier)
	assert.Zero(t, out.Len())
}

func TestRxResync(t *testing.T) {
	wire := []byte{
		0x40, 0x02, 0x00, 0x01, // PUBACK
		0x00, 0x02, 0xaa, 0xbb, // reserved packet type 0
		0x30, 0x05, 0x00, 0x01, 0xff, 'A', 'B', // PUBLISH with invalid topic encoding
		0xc0, 0x00, // PINGREQ
	}
	rx := NewRx(bytes.NewReader(wire), 64)
	rx.Resync = true
	rx.Log = logrus.New()
	got := collect(rx)
	var skipped []mqtt.Header
	rx.OnSkip = func(_ *Rx, hdr mqtt.Header, err error) {
		skipped = append(skipped, hdr)
	}

	err := rx.ReadAll()
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], mqtt.ErrUnknownPacketType)
	assert.Contains(t, errs[0].Error(), "offset 4")
	assert.ErrorIs(t, errs[1], mqtt.ErrInvalidUTF8)
	assert.Contains(t, errs[1].Error(), "offset 8")

	assert.Equal(t, []mqtt.PacketType{mqtt.PacketPuback, mqtt.PacketPingreq}, *got)
	require.Len(t, skipped, 2)
	assert.EqualValues(t, 2, skipped[0].RemainingLength)
	assert.EqualValues(t, len(wire), rx.Offset())
}

func TestRxStopsWithoutResync(t *testing.T) {
	wire := []byte{
		0x40, 0x02, 0x00, 0x01,
		0x62, 0x02, 0x00, 0x01, // PUBREL ok
		0x60, 0x02, 0x00, 0x01, // PUBREL with reserved flags unset
		0xc0, 0x00,
	}
	rx := NewRx(bytes.NewReader(wire), 64)
	got := collect(rx)
	err := rx.ReadAll()
	assert.ErrorIs(t, err, mqtt.ErrInvalidFlags)
	assert.Equal(t, []mqtt.PacketType{mqtt.PacketPuback, mqtt.PacketPubrel}, *got)
}

func TestRxTruncatedStream(t *testing.T) {
	rx := NewRx(bytes.NewReader([]byte{0xc0, 0x00, 0x40, 0x02, 0x00}), 64)
	rx.Resync = true
	got := collect(rx)
	err := rx.ReadAll()
	assert.ErrorIs(t, err, mqtt.ErrTruncated)
	assert.Equal(t, []mqtt.PacketType{mqtt.PacketPingreq}, *got)

	_, err = NewRx(bytes.NewReader(nil), 64).ReadNextPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRxUserBufferExceeded(t *testing.T) {
	var wire bytes.Buffer
	tx := NewTx(&wire, 64, false)
	_, err := tx.WritePacket(mqtt.NewPublish([]byte("t"), bytes.Repeat([]byte{'x'}, 32)))
	require.NoError(t, err)
	_, err = tx.WritePacket(mqtt.Pingresp{})
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	rx := NewRx(&wire, 16)
	rx.Resync = true
	rx.Log = logger
	got := collect(rx)
	err = rx.ReadAll()
	assert.ErrorIs(t, err, mqtt.ErrCapacityExceeded)
	assert.Equal(t, []mqtt.PacketType{mqtt.PacketPingresp}, *got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "packet skipped", hook.LastEntry().Message)
}

func TestRxCallbackErrorStops(t *testing.T) {
	rx := NewRx(bytes.NewReader([]byte{0xc0, 0x00, 0xd0, 0x00}), 64)
	calls := 0
	rx.OnPacket = func(*Rx, mqtt.Packet) error {
		calls++
		return io.ErrClosedPipe
	}
	assert.ErrorIs(t, rx.ReadAll(), io.ErrClosedPipe)
	assert.Equal(t, 1, calls)
}

func TestRxResyncShortBody(t *testing.T) {
	wire := []byte{
		0x40, 0x01, 0x00, // PUBACK too short for its packet identifier
		0xc0, 0x00,
	}
	rx := NewRx(bytes.NewReader(wire), 64)
	rx.Resync = true
	rx.Log = logrus.New()
	got := collect(rx)
	err := rx.ReadAll()
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], mqtt.ErrBodyTruncated)
	assert.ErrorIs(t, errs[0], mqtt.ErrTruncated)
	assert.Equal(t, []mqtt.PacketType{mqtt.PacketPingreq}, *got)
	assert.EqualValues(t, len(wire), rx.Offset())

	rx = NewRx(bytes.NewReader(wire), 64)
	got = collect(rx)
	assert.ErrorIs(t, rx.ReadAll(), mqtt.ErrBodyTruncated)
	assert.Empty(t, *got)
}

func TestRxNoResyncWithoutLength(t *testing.T) {
	// Reserved type followed by a Remaining Length that never ends.
	rx := NewRx(bytes.NewReader([]byte{0xc0, 0x00, 0xf0, 0x80, 0x80, 0x80, 0x80, 0xc0, 0x00}), 64)
	rx.Resync = true
	rx.Log = logrus.New()
	got := collect(rx)
	skips := 0
	rx.OnSkip = func(*Rx, mqtt.Header, error) { skips++ }
	err := rx.ReadAll()
	assert.ErrorIs(t, err, mqtt.ErrUnknownPacketType)
	assert.ErrorIs(t, err, mqtt.ErrMalformedVarint)
	assert.Zero(t, skips)
	assert.Equal(t, []mqtt.PacketType{mqtt.PacketPingreq}, *got)
}
