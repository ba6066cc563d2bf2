// Package mqtt provides MQTT broker connectivity for the DTU bridge.
//
// This package manages:
//   - Connection with auto-reconnect and TLS
//   - A retained availability topic: Last Will "offline", "online" on every
//     connect, "offline" on clean shutdown
//   - Publishing with QoS and a bounded wait for the broker acknowledgement
//   - Subscriptions that are restored after reconnect
//
// The client id configured in mqtt.broker.client_id gets a random suffix
// so that two bridge processes never take over each other's session.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Availability{
//	    Topic:   "hoymiles-dtu/bridge/state",
//	    Online:  "online",
//	    Offline: "offline",
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish("hoymiles-dtu/inv_INV01", payload, 1, false)
//
// A publish that is not acknowledged within five seconds fails with an error
// wrapping ErrPublishFailed and ErrTimeout, so a hung broker cannot stall
// the caller indefinitely.
package mqtt
