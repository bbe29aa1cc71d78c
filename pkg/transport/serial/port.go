// Package serial opens SBUS receivers attached to serial ports.
package serial

import (
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/sbus.go/pkg/transport"
)

// Opener opens a port by path.
// This abstraction enables unit testing without real serial hardware.
type Opener interface {
	Open(path string) (transport.Port, error)
}

// OpenFunc is the func form of Opener.
type OpenFunc func(path string) (transport.Port, error)

// Open implements Opener.
func (f OpenFunc) Open(path string) (transport.Port, error) {
	return f(path)
}

// DefaultOpener opens real serial ports.
var DefaultOpener Opener = OpenFunc(Open)

// ReadTimeout bounds a single Read on an opened port so a silent receiver
// doesn't pin the reader forever. A timed out Read returns 0 bytes.
var ReadTimeout = 500 * time.Millisecond

var openPort = serial.Open

// Open opens path with the SBUS line settings.
func Open(path string) (transport.Port, error) {
	port, err := openPort(path, Mode())
	if err != nil {
		return nil, &transport.Error{Op: "open", Path: path, Err: err}
	}
	if ReadTimeout > 0 {
		if err := port.SetReadTimeout(ReadTimeout); err != nil {
			glog.Warningf("%s: set read timeout: %v", path, err)
		}
	}
	glog.Infof("serial port %s opened", path)
	return &Port{Port: port, path: path}, nil
}

// Port is an opened serial port.
type Port struct {
	serial.Port
	path string
}

// Path returns the device path.
func (p *Port) Path() string {
	return p.path
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if err != nil {
		return n, &transport.Error{Op: "read", Path: p.path, Err: err}
	}
	return n, nil
}

// Close implements io.Closer.
func (p *Port) Close() error {
	if err := p.Port.Close(); err != nil {
		return &transport.Error{Op: "close", Path: p.path, Err: err}
	}
	glog.Infof("serial port %s closed", p.path)
	return nil
}
