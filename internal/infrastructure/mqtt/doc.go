// Package mqtt provides MQTT client connectivity for the lightshow binaries.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is the side channel of a show. It never carries frames (those go
// over raw UDP); it carries what other systems want to observe:
//
//	lightshow ──▶ lightshow/sequence/{name}/events   (media servers, cue lights)
//	          ──▶ lightshow/playback/status
//	          ◀── lightshow/playback/command       (remote start/stop)
//	dmxsim    ──▶ lightshow/state/{device}           (dashboards, loggers)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        name, _ := mqtt.DeviceFromStateTopic(topic)
//	        log.Printf("%s = %s", name, payload)
//	        return nil
//	    })
package mqtt
