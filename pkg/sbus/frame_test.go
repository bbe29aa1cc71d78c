package sbus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func filledFrame(b byte) (f Frame) {
	f[0], f[FrameLen-1] = StartByte, EndByte
	for n := range f.Payload() {
		f[payloadOffset+n] = b
	}
	return
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect uint16
	}{
		{"all zero", filledFrame(0x00), 0},
		{"all ones", filledFrame(0xff), MaxChannelCode},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cs, err := Decode(tc.frame)
			require.NoError(t, err)
			for n, code := range cs {
				require.Equalf(t, tc.expect, code, "channel %d", n)
			}
		})
	}
}

func TestDecodeBitOrder(t *testing.T) {
	f := filledFrame(0)
	// channel 0 takes all of payload[0] and the low 3 bits of payload[1].
	f[1], f[2] = 0xff, 0x07
	cs, err := Decode(f)
	require.NoError(t, err)
	require.Equal(t, uint16(MaxChannelCode), cs[0])
	for n := 1; n < NumChannels; n++ {
		require.Zerof(t, cs[n], "channel %d", n)
	}

	f = filledFrame(0)
	// lowest bit of channel 1 is bit 3 of payload[1].
	f[2] = 0x08
	cs, err = Decode(f)
	require.NoError(t, err)
	require.Zero(t, cs[0])
	require.Equal(t, uint16(1), cs[1])
}

func TestDecodeIgnoresFlags(t *testing.T) {
	f := filledFrame(0x00)
	f[flagsOffset] = 0xff
	cs, err := Decode(f)
	require.NoError(t, err)
	require.Equal(t, ChannelSet{}, cs)
	require.Equal(t, byte(0xff), f.Flags())
}

func TestDecodeFormatError(t *testing.T) {
	f := filledFrame(0x55)
	f[0] = 0x0e
	_, err := Decode(f)
	require.IsType(t, &FormatError{}, err)

	f = filledFrame(0x55)
	f[FrameLen-1] = 0x04
	_, err = Decode(f)
	require.IsType(t, &FormatError{}, err)
	require.Contains(t, err.Error(), "end=0x04")
}

func TestDecodeBytes(t *testing.T) {
	f := filledFrame(0xff)
	cs, err := DecodeBytes(f[:])
	require.NoError(t, err)
	require.Equal(t, uint16(MaxChannelCode), cs[15])

	for _, l := range []int{0, 1, FrameLen - 1, FrameLen + 1} {
		t.Run(fmt.Sprintf("len %d", l), func(t *testing.T) {
			b := make([]byte, l)
			if l > 0 {
				b[0] = StartByte
			}
			_, err := DecodeBytes(b)
			require.Error(t, err)
			fe, ok := err.(*FormatError)
			require.True(t, ok)
			require.Equal(t, l, fe.Len)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	var mixed ChannelSet
	for n := range mixed {
		mixed[n] = uint16((n*397 + 0x2aa) & MaxChannelCode)
	}
	var alternating ChannelSet
	for n := range alternating {
		if n%2 == 0 {
			alternating[n] = 0x555
		} else {
			alternating[n] = 0x2aa
		}
	}
	var maxed ChannelSet
	for n := range maxed {
		maxed[n] = MaxChannelCode
	}
	testCases := []struct {
		name string
		cs   ChannelSet
	}{
		{"zero", ChannelSet{}},
		{"max", maxed},
		{"mixed", mixed},
		{"alternating", alternating},
		{"centered", ChannelSet{992, 992, 172, 992, 1811, 1811, 172, 172, 992, 992, 992, 992, 992, 992, 992, 992}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Encode(tc.cs)
			require.True(t, f.Valid())
			require.Zero(t, f.Flags())
			cs, err := Decode(f)
			require.NoError(t, err)
			require.Equal(t, tc.cs, cs)
		})
	}
}

func TestEncodeTruncates(t *testing.T) {
	cs, err := Decode(Encode(ChannelSet{0xffff, 0x0800}))
	require.NoError(t, err)
	require.Equal(t, uint16(MaxChannelCode), cs[0])
	require.Zero(t, cs[1])
	require.Zero(t, cs[2])
}

func TestPulseWidth(t *testing.T) {
	testCases := []struct {
		code   uint16
		expect uint16
	}{
		{0, 1000},
		{171, 1000},
		{172, 1000},
		{173, 1001},
		{992, 1500},
		{1811, 2000},
		{1812, 2000},
		{MaxChannelCode, 2000},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d", tc.code), func(t *testing.T) {
			require.Equal(t, tc.expect, PulseWidth(tc.code))
		})
	}
}

func TestPulseWidthMonotonic(t *testing.T) {
	prev := PulseWidth(0)
	for code := uint16(0); code <= MaxChannelCode; code++ {
		us := PulseWidth(code)
		require.True(t, us >= MinPulseWidth && us <= MaxPulseWidth, "code %d -> %d", code, us)
		require.True(t, us >= prev, "code %d -> %d after %d", code, us, prev)
		prev = us
	}
}

func TestToPulseWidths(t *testing.T) {
	cs := ChannelSet{172, 1811, 992}
	pw, err := ToPulseWidths(cs.Slice())
	require.NoError(t, err)
	require.Equal(t, cs.PulseWidths(), pw)
	require.Equal(t, uint16(1000), pw[0])
	require.Equal(t, uint16(2000), pw[1])
	require.Equal(t, uint16(1500), pw[2])
	require.Equal(t, uint16(1000), pw[3])

	for _, l := range []int{0, NumChannels - 1, NumChannels + 1} {
		_, err := ToPulseWidths(make([]uint16, l))
		require.Error(t, err)
		se, ok := err.(*ShapeError)
		require.True(t, ok)
		require.Equal(t, l, se.Count)
	}
}
