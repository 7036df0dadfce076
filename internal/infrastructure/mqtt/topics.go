package mqtt

import "fmt"

// TopicPrefix is the root of every lightshow topic.
const TopicPrefix = "lightshow"

// Topics provides builders for lightshow MQTT topics.
//
//	lightshow/sequence/{name}/events     retained JSON trigger list
//	lightshow/sequence/{name}/compiled   retained compile result
//	lightshow/playback/status            retained player status
//	lightshow/playback/command           start/stop requests to the player
//	lightshow/state/{device}             retained decoded device values
//	lightshow/system/{client_id}/status  retained online/offline + LWT
type Topics struct{}

// SequenceEvents returns the topic carrying a compiled sequence's trigger list.
//
// Example: lightshow/sequence/intro/events
func (Topics) SequenceEvents(name string) string {
	return fmt.Sprintf("%s/sequence/%s/events", TopicPrefix, name)
}

// SequenceCompiled returns the topic carrying a compile result.
//
// Example: lightshow/sequence/intro/compiled
func (Topics) SequenceCompiled(name string) string {
	return fmt.Sprintf("%s/sequence/%s/compiled", TopicPrefix, name)
}

// PlaybackStatus returns the player status topic.
func (Topics) PlaybackStatus() string {
	return TopicPrefix + "/playback/status"
}

// PlaybackCommand returns the topic the controller takes remote
// start/stop requests on.
func (Topics) PlaybackCommand() string {
	return TopicPrefix + "/playback/command"
}

// DeviceState returns the topic for a device's decoded state.
//
// Example: lightshow/state/par1
func (Topics) DeviceState(deviceName string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceName)
}

// ClientStatus returns the online/offline topic of one client.
//
// Example: lightshow/system/dmxsim/status
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/system/%s/status", TopicPrefix, clientID)
}

// AllDeviceStates matches every device state topic.
//
// Pattern: lightshow/state/+
func (Topics) AllDeviceStates() string {
	return TopicPrefix + "/state/+"
}

// AllClientStatuses matches every client status topic.
//
// Pattern: lightshow/system/+/status
func (Topics) AllClientStatuses() string {
	return TopicPrefix + "/system/+/status"
}

// DeviceFromStateTopic extracts the device name from a state topic, or
// returns false if topic is not one.
func DeviceFromStateTopic(topic string) (string, bool) {
	prefix := TopicPrefix + "/state/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return "", false
	}
	return topic[len(prefix):], true
}
