//go:build mqttfixed && mqttarena

package mqtt

// Only one Sink backing may be selected per build.
var _ = buildTagsMqttfixedAndMqttarenaAreMutuallyExclusive
