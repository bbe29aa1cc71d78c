package ingest

import (
	"context"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
)

// Sink receives the published feeds. Calls come from the publish tasks of a
// Session and should not block for long.
type Sink interface {
	// PublishRaw receives a batch of raw bytes.
	PublishRaw(context.Context, *msgs.RawData) error
	// PublishChannels receives the latest decoded channels.
	PublishChannels(context.Context, *msgs.ChannelData) error
}

// SinkMux publishes to multiple Sinks.
type SinkMux struct {
	Sinks []Sink
}

// NewSinkMux creates a SinkMux.
func NewSinkMux(sinks ...Sink) *SinkMux {
	return &SinkMux{Sinks: sinks}
}

// Add adds more sinks.
func (m *SinkMux) Add(sinks ...Sink) {
	m.Sinks = append(m.Sinks, sinks...)
}

// PublishRaw implements Sink.
func (m *SinkMux) PublishRaw(ctx context.Context, msg *msgs.RawData) error {
	var errs fx.AggregatedError
	for _, s := range m.Sinks {
		errs.Add(s.PublishRaw(ctx, msg))
	}
	return errs.Aggregate()
}

// PublishChannels implements Sink.
func (m *SinkMux) PublishChannels(ctx context.Context, msg *msgs.ChannelData) error {
	var errs fx.AggregatedError
	for _, s := range m.Sinks {
		errs.Add(s.PublishChannels(ctx, msg))
	}
	return errs.Aggregate()
}

// ErrorHandler is called when the transport fails while a session runs.
type ErrorHandler interface {
	HandleError(context.Context, error)
}

// HandleErrorFunc is func type of ErrorHandler.
type HandleErrorFunc func(context.Context, error)

// HandleError implements ErrorHandler.
func (f HandleErrorFunc) HandleError(ctx context.Context, err error) {
	f(ctx, err)
}
