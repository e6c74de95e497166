package mqtt

import (
	"bytes"

	"github.com/pkg/errors"
)

// ValidateTopicFilter checks the wildcard placement of a SUBSCRIBE or
// UNSUBSCRIBE topic filter. A '+' or '#' must occupy an entire topic level
// and '#' may only be the last level [MQTT-4.7.1-2] [MQTT-4.7.1-3].
// Decode does not apply these rules so that servers may answer with a
// SUBACK failure return code instead of closing the connection.
func ValidateTopicFilter(filter []byte) error {
	if len(filter) == 0 {
		return errors.WithMessage(ErrInvalidTopic, "empty topic filter")
	}
	if err := ValidateString(filter); err != nil {
		return err
	}
	for levels := filter; levels != nil; {
		var level []byte
		level, levels = nextLevel(levels)
		// catch things like finance#
		if len(level) != 1 && bytes.ContainsAny(level, "+#") {
			return errors.WithMessagef(ErrInvalidTopic, "malformed wildcard in filter %q", filter)
		}
		if len(level) == 1 && level[0] == '#' && levels != nil {
			return errors.WithMessagef(ErrInvalidTopic, "multi-level wildcard not last in filter %q", filter)
		}
	}
	return nil
}

// nextLevel splits the first topic level off s. rest is nil when s has a single level.
func nextLevel(s []byte) (level, rest []byte) {
	i := bytes.IndexByte(s, '/')
	if i < 0 {
		return s, nil
	}
	return s[:i], s[i+1:]
}
