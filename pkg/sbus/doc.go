// Package sbus provides SBUS frame recovery and channel decoding.
package sbus

// SBUS is a one-way stream from an RC receiver running at 100000 baud,
// 8 data bits, even parity and 2 stop bits. The receiver repeats a fixed
// 25-byte frame every few milliseconds:
//
//	byte 0      start marker 0x0F
//	bytes 1-22  16 channels, 11 bits each, packed LSB first
//	byte 23     flags (frame lost, failsafe, digital channels)
//	byte 24     end marker 0x00
//
// There is no checksum and no out-of-band sync signal, so the Framer
// recovers alignment from the markers alone and silently drops whatever
// can't be aligned. The flag byte is carried in Frame but never decoded.
//
// Producer: RC receiver
// Consumer: ingest.Session
