package sbus

import "fmt"

// FormatError indicates a candidate frame has the wrong length or markers.
type FormatError struct {
	Len   int
	Start byte
	End   byte
}

// Error implements error.
func (e *FormatError) Error() string {
	if e.Len != FrameLen {
		return fmt.Sprintf("invalid frame length %d", e.Len)
	}
	return fmt.Sprintf("invalid frame markers start=0x%02x end=0x%02x", e.Start, e.End)
}

// ShapeError indicates a channel slice doesn't have NumChannels values.
type ShapeError struct {
	Count int
}

// Error implements error.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("expect %d channels, got %d", NumChannels, e.Count)
}
