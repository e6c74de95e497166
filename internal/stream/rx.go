// Package stream reads and writes sequences of MQTT packets over byte streams.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	mqtt "github.com/soypat/mqttwire"
)

// Rx decodes consecutive packets from a byte stream.
type Rx struct {
	// LastReceivedHeader contains the last correctly read header.
	LastReceivedHeader mqtt.Header
	// OnPacket is called for every decoded packet. The packet's fields must not
	// be retained after OnPacket returns when built with the mqttborrow tag.
	// A non-nil error stops the read loop.
	OnPacket func(rx *Rx, p mqtt.Packet) error
	// OnSkip is called when Resync is set and a packet is skipped.
	OnSkip func(rx *Rx, hdr mqtt.Header, err error)
	// Resync skips packets that have a well formed fixed header but fail to
	// decode. Without Resync the first decode error stops the read loop.
	Resync bool
	// Log receives debug information for each packet. Defaults to the standard logger.
	Log log.FieldLogger

	br  *bufio.Reader
	cur mqtt.ReaderCursor
	off int64
}

// NewRx returns an Rx reading from r. Packets larger than userBuffer bytes fail to decode.
func NewRx(r io.Reader, userBuffer int) *Rx {
	br := bufio.NewReader(r)
	return &Rx{
		br:  br,
		cur: mqtt.ReaderCursor{R: br, Buf: make([]byte, userBuffer)},
	}
}

// Offset returns the number of bytes consumed from the stream.
func (rx *Rx) Offset() int64 { return rx.off }

// errSkipped marks errors after which the stream was positioned past the offending packet.
type errSkipped struct {
	err    error
	offset int64
}

func (e *errSkipped) Error() string {
	return fmt.Sprintf("skipped packet at offset %d: %v", e.offset, e.err)
}

func (e *errSkipped) Unwrap() error { return e.err }

// ReadNextPacket decodes a single packet and passes it to OnPacket. It returns
// io.EOF when the stream ends on a packet boundary. When Resync is set and the
// packet could be skipped the returned error unwraps to the decode error and
// the next call continues with the following packet.
func (rx *Rx) ReadNextPacket() (int, error) {
	if _, err := rx.br.Peek(1); err != nil {
		return 0, err
	}
	rx.cur.Reset()
	pktOff := rx.off
	start := rx.cur.InputOffset()
	consumed := func() int {
		n := rx.cur.InputOffset() - start
		rx.off = pktOff + n
		return int(n)
	}

	hdr, err := mqtt.DecodeHeader(&rx.cur)
	if err != nil {
		// Malformed or truncated lengths leave no packet boundary to resync to,
		// even when the first byte was invalid too.
		if !canSkip(err) {
			return consumed(), err
		}
		return rx.skip(hdr, pktOff, consumed(), err)
	}
	rx.LastReceivedHeader = hdr
	p, err := mqtt.DecodeBody(&rx.cur, hdr)
	n := consumed()
	if err != nil {
		if !canSkip(err) {
			return n, err
		}
		return rx.skip(hdr, pktOff, n, err)
	}
	rx.logger().WithFields(log.Fields{
		"type":   hdr.Type().String(),
		"flags":  hdr.Flags().String(),
		"size":   n,
		"offset": pktOff,
	}).Debug("packet decoded")
	if rx.OnPacket != nil {
		err = rx.OnPacket(rx, p)
	}
	return n, err
}

// skip discards the rest of the packet described by hdr, of which consumed bytes have been read.
func (rx *Rx) skip(hdr mqtt.Header, pktOff int64, consumed int, cause error) (int, error) {
	if !rx.Resync {
		return consumed, cause
	}
	remaining := hdr.Size() + int(hdr.RemainingLength) - consumed
	discarded, err := rx.br.Discard(remaining)
	rx.off += int64(discarded)
	n := consumed + discarded
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = mqtt.ErrTruncated
		}
		return n, pkgerrors.WithMessage(err, "resyncing after "+cause.Error())
	}
	rx.logger().WithFields(log.Fields{
		"type":    hdr.Type().String(),
		"skipped": n,
		"offset":  pktOff,
	}).WithError(cause).Warn("packet skipped")
	if rx.OnSkip != nil {
		rx.OnSkip(rx, hdr, cause)
	}
	return n, &errSkipped{err: cause, offset: pktOff}
}

// ReadAll reads packets until the end of the stream. Errors of skipped packets
// are combined into the returned error. A stream that ends on a packet boundary
// is not an error.
func (rx *Rx) ReadAll() (skipped error) {
	for {
		_, err := rx.ReadNextPacket()
		var skip *errSkipped
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return skipped
		case errors.As(err, &skip):
			skipped = multierr.Append(skipped, err)
		default:
			return multierr.Append(skipped, pkgerrors.WithMessagef(err, "offset %d", rx.off))
		}
	}
}

func (rx *Rx) logger() log.FieldLogger {
	if rx.Log != nil {
		return rx.Log
	}
	return log.StandardLogger()
}

// canSkip reports whether err was caused by packet contents and not by the input stream.
func canSkip(err error) bool {
	switch {
	case errors.Is(err, mqtt.ErrBodyTruncated):
		return true
	case errors.Is(err, mqtt.ErrTruncated), errors.Is(err, mqtt.ErrMalformedVarint):
		return false
	}
	for _, target := range []error{
		mqtt.ErrUnknownPacketType,
		mqtt.ErrInvalidFlags,
		mqtt.ErrInvalidQoS,
		mqtt.ErrInvalidUTF8,
		mqtt.ErrForbiddenCharacter,
		mqtt.ErrInvalidPacketIdentifier,
		mqtt.ErrUnsupportedProtocol,
		mqtt.ErrInvalidTopic,
		mqtt.ErrInvalidValue,
		mqtt.ErrTrailingData,
		mqtt.ErrCapacityExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
