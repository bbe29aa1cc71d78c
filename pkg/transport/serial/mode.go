package serial

import (
	"go.bug.st/serial"
)

// SBUS line settings. They are fixed by the protocol.
const (
	BaudRate = 100000
	DataBits = 8
)

// Mode returns the serial mode SBUS receivers transmit with:
// 100000 baud, 8 data bits, even parity, 2 stop bits.
func Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.EvenParity,
		StopBits: serial.TwoStopBits,
	}
}
