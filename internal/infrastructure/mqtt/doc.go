// Package mqtt provides the MQTT connection used to mirror relay
// broadcasts onto a broker.
//
// This package manages:
//   - Connection with auto-reconnect and a Last Will offline status
//   - Publishing with QoS and payload size checks
//   - Topic naming under a configurable prefix
//
// The mirror is optional (mqtt.enabled). When the broker is unreachable the
// relay keeps delivering to sockets and mirror publishes fail with
// ErrNotConnected, which the relay logs.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().RelayEvent("contacts-room", "created")
//	err = client.Publish(topic, frame, 1, false)
package mqtt
