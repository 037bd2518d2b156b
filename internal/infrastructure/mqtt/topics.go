package mqtt

import "fmt"

// Topic prefixes for the Hearth MQTT namespace.
//
// All topics live under hearth/. Assistant topics carry request results,
// capture topics carry recorder state transitions, system topics carry
// service lifecycle status.
const (
	// TopicPrefix is the base for all Hearth topics.
	TopicPrefix = "hearth"

	// TopicPrefixAssistant is the base for assistant request/response topics.
	TopicPrefixAssistant = "hearth/assistant"

	// TopicPrefixCapture is the base for audio capture topics.
	TopicPrefixCapture = "hearth/capture"

	// TopicPrefixSystem is the base for system lifecycle topics.
	TopicPrefixSystem = "hearth/system"
)

// Topics provides builders for Hearth MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.AssistantResponse()
//	// Returns: "hearth/assistant/response"
type Topics struct{}

// AssistantResponse returns the topic for per-request result summaries.
// Published retained so late subscribers see the most recent response.
//
// Example: hearth/assistant/response
func (Topics) AssistantResponse() string {
	return fmt.Sprintf("%s/response", TopicPrefixAssistant)
}

// AssistantActivity returns the topic for request lifecycle events
// (received, planning, executing, done).
//
// Example: hearth/assistant/activity
func (Topics) AssistantActivity() string {
	return fmt.Sprintf("%s/activity", TopicPrefixAssistant)
}

// CaptureState returns the topic for recorder state transitions.
// Published retained so UIs can reflect the current recorder state.
//
// Example: hearth/capture/state
func (Topics) CaptureState() string {
	return fmt.Sprintf("%s/state", TopicPrefixCapture)
}

// SystemStatus returns the service online/offline status topic.
// Also used as the Last Will topic for crash detection.
//
// Example: hearth/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllAssistant returns a pattern matching all assistant topics.
//
// Pattern: hearth/assistant/+
func (Topics) AllAssistant() string {
	return fmt.Sprintf("%s/+", TopicPrefixAssistant)
}

// AllTopics returns a pattern matching every Hearth topic.
// Use with caution, this receives ALL traffic.
//
// Pattern: hearth/#
func (Topics) AllTopics() string {
	return "hearth/#"
}
