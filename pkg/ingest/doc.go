// Package ingest turns raw SBUS byte chunks into two rate-limited feeds.
//
// A Session appends every chunk to a raw batch and runs it through an
// sbus.Framer, keeping only the most recently decoded channel set. Two
// periodic tasks drain the batch and the latest channel set into a Sink,
// so the Sink sees at most one message of each kind per interval no matter
// how fast frames arrive.
package ingest
