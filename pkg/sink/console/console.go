// Package console logs session feeds.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/msgs"
)

// Sink writes channel snapshots to Out, or glog when Out is nil.
// Raw batches are only logged at V(2).
type Sink struct {
	Out io.Writer

	lock sync.Mutex
}

// New creates a Sink writing to out.
func New(out io.Writer) *Sink {
	return &Sink{Out: out}
}

// PublishRaw implements ingest.Sink.
func (s *Sink) PublishRaw(_ context.Context, msg *msgs.RawData) error {
	if glog.V(2) {
		glog.Infof("raw %d bytes: % x", len(msg.Data), msg.Data)
	}
	return nil
}

// PublishChannels implements ingest.Sink.
func (s *Sink) PublishChannels(_ context.Context, msg *msgs.ChannelData) error {
	line := FormatChannels(msg)
	if s.Out == nil {
		glog.Info(line)
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := fmt.Fprintln(s.Out, line)
	return err
}

// FormatChannels formats pulse widths on a single line.
func FormatChannels(msg *msgs.ChannelData) string {
	var sb strings.Builder
	sb.WriteString(msg.Timestamp)
	for n, pw := range msg.PulseWidths {
		fmt.Fprintf(&sb, " %d:%d", n+1, pw)
	}
	return sb.String()
}
