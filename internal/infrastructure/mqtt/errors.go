package mqtt

import "errors"

// Sentinel errors for MQTT operations.
// Wrap with fmt.Errorf("%w: detail", Err...) and test with errors.Is.
var (
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrNotConnected      = errors.New("mqtt: not connected")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
	ErrInvalidTopic      = errors.New("mqtt: invalid topic")
	ErrInvalidQoS        = errors.New("mqtt: invalid qos level")
)
