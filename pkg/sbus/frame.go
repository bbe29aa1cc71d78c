package sbus

import "math"

// Frame layout.
const (
	FrameLen       = 25
	StartByte byte = 0x0f
	EndByte   byte = 0x00

	NumChannels    = 16
	ChannelBits    = 11
	MaxChannelCode = 1<<ChannelBits - 1

	payloadOffset = 1
	payloadLen    = 22
	flagsOffset   = 23
)

// Channel code range mapped onto MinPulseWidth..MaxPulseWidth.
const (
	MinChannelCode = 172
	MaxPulseCode   = 1811
	MinPulseWidth  = 1000
	MaxPulseWidth  = 2000
)

// Frame is one raw SBUS frame.
type Frame [FrameLen]byte

// ChannelSet contains the decoded 11-bit channel codes.
type ChannelSet [NumChannels]uint16

// PulseWidths contains channel values rescaled to microseconds.
type PulseWidths [NumChannels]uint16

// Valid checks the start and end markers.
func (f *Frame) Valid() bool {
	return f[0] == StartByte && f[FrameLen-1] == EndByte
}

// Payload returns the packed channel bytes.
func (f *Frame) Payload() []byte {
	return f[payloadOffset : payloadOffset+payloadLen]
}

// Flags returns the raw flag byte. It is not interpreted.
func (f *Frame) Flags() byte {
	return f[flagsOffset]
}

// Decode unpacks the channels from a frame.
func Decode(f Frame) (cs ChannelSet, err error) {
	if !f.Valid() {
		return cs, &FormatError{Len: FrameLen, Start: f[0], End: f[FrameLen-1]}
	}
	payload := f.Payload()
	for ch := 0; ch < NumChannels; ch++ {
		var val uint16
		offset := ch * ChannelBits
		for bit := 0; bit < ChannelBits; bit++ {
			pos := offset + bit
			if n := pos / 8; n < len(payload) && payload[n]&(1<<uint(pos%8)) != 0 {
				val |= 1 << uint(bit)
			}
		}
		cs[ch] = val
	}
	return cs, nil
}

// DecodeBytes validates the length of b and decodes it as a Frame.
func DecodeBytes(b []byte) (ChannelSet, error) {
	if len(b) != FrameLen {
		var start, end byte
		if len(b) > 0 {
			start, end = b[0], b[len(b)-1]
		}
		return ChannelSet{}, &FormatError{Len: len(b), Start: start, End: end}
	}
	var f Frame
	copy(f[:], b)
	return Decode(f)
}

// Encode packs the channel codes into a frame. Codes are truncated to 11
// bits and the flag byte is left zero.
func Encode(cs ChannelSet) (f Frame) {
	f[0], f[FrameLen-1] = StartByte, EndByte
	payload := f.Payload()
	for ch, code := range cs {
		offset := ch * ChannelBits
		for bit := 0; bit < ChannelBits; bit++ {
			if code&(1<<uint(bit)) != 0 {
				pos := offset + bit
				payload[pos/8] |= 1 << uint(pos%8)
			}
		}
	}
	return
}

// PulseWidths rescales all channels.
func (cs ChannelSet) PulseWidths() (pw PulseWidths) {
	for n, code := range cs {
		pw[n] = PulseWidth(code)
	}
	return
}

// Slice returns the channels as a slice.
func (cs ChannelSet) Slice() []uint16 {
	return append([]uint16(nil), cs[:]...)
}

// Slice returns the pulse widths as a slice.
func (pw PulseWidths) Slice() []uint16 {
	return append([]uint16(nil), pw[:]...)
}

// ToPulseWidths rescales a slice of exactly NumChannels channel codes.
func ToPulseWidths(codes []uint16) (pw PulseWidths, err error) {
	if len(codes) != NumChannels {
		return pw, &ShapeError{Count: len(codes)}
	}
	for n, code := range codes {
		pw[n] = PulseWidth(code)
	}
	return pw, nil
}

// PulseWidth maps a channel code linearly so that MinChannelCode is
// MinPulseWidth and MaxPulseCode is MaxPulseWidth, then clamps.
func PulseWidth(code uint16) uint16 {
	us := MinPulseWidth + (float64(code)-MinChannelCode)*
		(MaxPulseWidth-MinPulseWidth)/(MaxPulseCode-MinChannelCode)
	us = math.Floor(us + 0.5)
	if us < MinPulseWidth {
		return MinPulseWidth
	}
	if us > MaxPulseWidth {
		return MaxPulseWidth
	}
	return uint16(us)
}
