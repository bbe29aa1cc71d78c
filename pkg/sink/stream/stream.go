// Package stream writes session feeds as length-prefixed typed envelopes
// to a byte stream, e.g. a file or a pipe.
// Each packet is prefixed by 4-byte (little-endian) indicating the length.
package stream

import (
	"context"
	"encoding/binary"
	"io"
	"sync"

	"github.com/robotalks/sbus.go/pkg/msgs"
)

// MaxPacketSize rejects corrupted length prefixes on read.
const MaxPacketSize = 1 << 20

// ErrPacketTooLarge indicates a length prefix beyond MaxPacketSize.
var ErrPacketTooLarge = &PacketSizeError{}

// PacketSizeError reports an oversized packet.
type PacketSizeError struct {
	Size uint32
}

// Error implements error.
func (e *PacketSizeError) Error() string {
	return "packet too large"
}

// Is matches any PacketSizeError.
func (e *PacketSizeError) Is(target error) bool {
	_, ok := target.(*PacketSizeError)
	return ok
}

// Writer implements ingest.Sink over an io.Writer.
type Writer struct {
	lock sync.Mutex
	w    io.Writer
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// PublishRaw implements ingest.Sink.
func (s *Writer) PublishRaw(_ context.Context, msg *msgs.RawData) error {
	return s.WriteMessage(msg)
}

// PublishChannels implements ingest.Sink.
func (s *Writer) PublishChannels(_ context.Context, msg *msgs.ChannelData) error {
	return s.WriteMessage(msg)
}

// WriteMessage writes msg in a typed envelope.
func (s *Writer) WriteMessage(msg msgs.SerializableMessage) error {
	pkt, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return WritePacket(s.w, pkt)
}

// Close closes the underlying writer if it's an io.Closer.
func (s *Writer) Close() error {
	if closer, ok := s.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// WritePacket writes a single length-prefixed packet.
func WritePacket(w io.Writer, pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := w.Write(buf)
	return err
}

// ReadPacket reads a single length-prefixed packet.
func ReadPacket(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, &PacketSizeError{Size: size}
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(r, pkt)
	return pkt, err
}

// ReadMessage reads and decodes a typed envelope.
func ReadMessage(r io.Reader) (msgs.SerializableMessage, error) {
	pkt, err := ReadPacket(r)
	if err != nil {
		return nil, err
	}
	typed, err := msgs.DecodeTyped(pkt)
	if err != nil {
		return nil, err
	}
	return typed.Decode()
}
