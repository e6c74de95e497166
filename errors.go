package mqtt

import (
	"errors"
	"fmt"
)

const bugReportLink = "Please report bugs at https://github.com/soypat/mqttwire/issues/new "

// Codec errors. Errors returned by this package wrap one of these values
// so they can be tested with errors.Is.
var (
	// ErrTruncated is returned when the input ends before a field or packet is complete.
	ErrTruncated = errors.New("mqtt: truncated data")
	// ErrBodyTruncated is returned when a packet field extends past the
	// Remaining Length of its packet. It wraps ErrTruncated. Unlike a truncated
	// input the packet boundary is known, so a stream reader may skip the packet.
	ErrBodyTruncated = fmt.Errorf("mqtt: field exceeds remaining length: %w", ErrTruncated)
	// ErrTrailingData is returned when a packet body is shorter than its Remaining Length.
	ErrTrailingData = errors.New("mqtt: trailing data in packet")
	// ErrMalformedVarint is returned for a Remaining Length that continues past 4 bytes
	// or is not minimally encoded.
	ErrMalformedVarint = errors.New("mqtt: malformed remaining length")
	// ErrValueTooLarge is returned on encode when a string exceeds 65535 bytes
	// or a Remaining Length exceeds 268435455.
	ErrValueTooLarge = errors.New("mqtt: value too large")
	ErrInvalidUTF8   = errors.New("mqtt: invalid utf-8 string")
	// ErrForbiddenCharacter is returned for strings containing U+0000 [MQTT-1.5.3-2].
	ErrForbiddenCharacter = errors.New("mqtt: forbidden character in string")
	ErrUnknownPacketType  = errors.New("mqtt: unknown packet type")
	ErrInvalidFlags       = errors.New("mqtt: invalid flags")
	ErrInvalidQoS         = errors.New("mqtt: invalid QoS")
	// ErrInvalidPacketIdentifier is returned for a zero packet identifier where one is required.
	ErrInvalidPacketIdentifier = errors.New("mqtt: invalid packet identifier")
	// ErrCapacityExceeded is returned by fixed capacity sinks and user buffers when full.
	ErrCapacityExceeded = errors.New("mqtt: capacity exceeded")

	// ErrUnsupportedProtocol is returned when a CONNECT packet does not carry
	// protocol name "MQTT" with protocol level 4. Servers answer these with
	// ReturnCodeUnnaceptableProtocol.
	ErrUnsupportedProtocol = errors.New("mqtt: unsupported protocol name or level")
	// ErrInvalidTopic is returned for empty topic names and filters or for topic names
	// containing wildcard characters.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
	// ErrInvalidValue is returned for fields holding values outside their defined range,
	// such as a CONNACK return code above 5.
	ErrInvalidValue = errors.New("mqtt: invalid value")
)
