// Package mqtt provides the broker connection the bridge publishes through.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained publishing for discovery configs, states and availability
//   - Subscriptions that survive reconnects (used for homeassistant/status)
//   - A Last Will on the bridge status topic
//
// # Topics
//
//	beestat/bridge/status          online/offline (Last Will)
//	beestat/bridge/availability    online while polls succeed
//	beestat/<device>/availability  online while the device is in the snapshot
//	beestat/<device>/state         retained JSON state
//	homeassistant/<component>/beestat/<unique_id>/config
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.HomeAssistant)
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishJSON(topics.DeviceState("tstat-1"), state)
package mqtt
