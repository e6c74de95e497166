package mqtt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	mqtt "github.com/soypat/mqttwire"
)

func TestValidateTopicFilter(t *testing.T) {
	for _, filter := range []string{"#", "+", "a/b", "a/+/c", "a/#", "+/+", "/", "$SYS/#", "sport/tennis/player1/#"} {
		assert.NoError(t, mqtt.ValidateTopicFilter([]byte(filter)), filter)
	}
	for _, filter := range []string{"", "finance#", "a/b+", "#/a", "a/#/b", "a\x00b"} {
		assert.Error(t, mqtt.ValidateTopicFilter([]byte(filter)), filter)
	}
	assert.ErrorIs(t, mqtt.ValidateTopicFilter([]byte("a/#/b")), mqtt.ErrInvalidTopic)
	assert.ErrorIs(t, mqtt.ValidateTopicFilter([]byte("a\x00b")), mqtt.ErrForbiddenCharacter)
}
