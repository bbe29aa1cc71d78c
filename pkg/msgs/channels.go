package msgs

import (
	"time"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// TimestampLayout formats ChannelData.Timestamp as local wall clock time.
const TimestampLayout = "15:04:05.000"

// NewChannelData creates a snapshot of a decoded channel set.
func NewChannelData(cs sbus.ChannelSet, at time.Time) *ChannelData {
	pw := cs.PulseWidths()
	m := &ChannelData{
		Channels:    make([]uint32, sbus.NumChannels),
		PulseWidths: make([]uint32, sbus.NumChannels),
		Timestamp:   at.Format(TimestampLayout),
	}
	for n := range cs {
		m.Channels[n], m.PulseWidths[n] = uint32(cs[n]), uint32(pw[n])
	}
	return m
}

// ChannelSet converts the channels back. It fails when the message doesn't
// carry exactly sbus.NumChannels values.
func (m *ChannelData) ChannelSet() (cs sbus.ChannelSet, err error) {
	if len(m.Channels) != sbus.NumChannels {
		return cs, &sbus.ShapeError{Count: len(m.Channels)}
	}
	for n, v := range m.Channels {
		cs[n] = uint16(v & sbus.MaxChannelCode)
	}
	return cs, nil
}
