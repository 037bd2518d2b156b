// Package mqtt provides the MQTT client for Hearth's status side-channel.
//
// Hearth publishes request result summaries, recorder state transitions,
// and service lifecycle status over MQTT so wall panels and dashboards
// can follow activity without polling the HTTP API.
//
// Topic layout (see Topics for builders):
//
//	hearth/assistant/response   retained, last request summary
//	hearth/assistant/activity   request lifecycle events
//	hearth/capture/state        retained, recorder state
//	hearth/system/status        retained, online/offline + Last Will
//
// The client reconnects automatically with exponential backoff and
// restores subscriptions after a reconnect. A Last Will message on the
// system status topic lets subscribers detect an unclean shutdown.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.AssistantResponse()
//	err = client.PublishRetained(topic, payload)
package mqtt
