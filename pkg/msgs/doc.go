// Package msgs defines messages published by an ingestion session.
package msgs

// Messages are protobuf encoded and wrapped in Typed so a subscriber can
// tell them apart on a shared topic or stream.
//
// Producer: ingest.Session sinks
// Consumer: displays, sbusmon
