// Package mqtt publishes session feeds to an MQTT broker.
//
// Given a broker URL mqtt://host:1883/sbus/ and receiver ID rx1, the topics are
//
//	sbus/rx1/raw       RawData in a msgs.Typed envelope
//	sbus/rx1/channels  ChannelData in a msgs.Typed envelope
//	sbus/rx1/meta      retained JSON Meta, cleared when the publisher stops
package mqtt
