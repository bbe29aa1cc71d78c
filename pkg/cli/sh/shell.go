// Package sh provides an interactive shell to inspect serial devices and
// run an ingestion session.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/env"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/ingest"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/transport"
	"github.com/robotalks/sbus.go/pkg/transport/serial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell       *ishell.Shell
	Env         *env.Env
	Opener      serial.Opener
	ListDevices func() ([]*msgs.DeviceInfo, error)
	Session     *ingest.Session
	// Runnables are the background tasks of the sinks, e.g. the MQTT
	// connection and the websocket server.
	Runnables []fx.Runnable

	// Path is the device of the last connect.
	Path string

	background *fx.Runner
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ListCmd,
		&ConnectCmd,
		&StartCmd,
		&StopCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(e *env.Env) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:       ishell.New(),
		Env:         e,
		Opener:      serial.DefaultOpener,
		ListDevices: serial.List,
		Session:     e.NewSession(),
		Runnables:   e.Runnables(),
	}
	s.Session.ErrorHandler = ingest.HandleErrorFunc(func(_ context.Context, err error) {
		s.printf("session error: %v\n", err)
	})
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// FormatDevice prints DeviceInfo into friendly string for display.
func FormatDevice(d *msgs.DeviceInfo) string {
	var sb strings.Builder
	sb.WriteString(d.Path)
	if d.Product != "" {
		fmt.Fprintf(&sb, ": %s", d.Product)
	}
	if d.VendorID != "" || d.ProductID != "" {
		fmt.Fprintf(&sb, " [%s:%s]", d.VendorID, d.ProductID)
	}
	if d.SerialNumber != "" {
		fmt.Fprintf(&sb, " #%s", d.SerialNumber)
	}
	return sb.String()
}

// FormatStatus prints session status in a line.
func FormatStatus(path string, st ingest.Status) string {
	if !st.Running {
		return "stopped"
	}
	line := fmt.Sprintf("%s session=%s frames=%d superseded=%d raw=%d dropped=%d discarded=%d",
		path, st.ID, st.Stats.Frames, st.Stats.Superseded,
		st.Stats.RawBytes, st.Stats.RawDropped, st.Framer.Discarded)
	if st.ReadError != "" {
		line += " error=" + st.ReadError
	}
	return line
}

// Devices lists serial devices. When usbOnly is set only USB devices are
// returned. filters are case-insensitive substrings of path or product.
func (s *Shell) Devices(usbOnly bool, filters ...string) ([]*msgs.DeviceInfo, error) {
	devices, err := s.ListDevices()
	if err != nil {
		return nil, err
	}
	if usbOnly {
		devices = serial.FilterUSB(devices)
	}
	return serial.FilterByName(devices, filters...), nil
}

// SelectDevice lists USB devices and asks for a choice.
func (s *Shell) SelectDevice() (string, error) {
	devices, err := s.Devices(true)
	if err != nil {
		return "", err
	}
	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no device found")
	case 1:
		return devices[0].Path, nil
	}
	if !s.Interactive {
		return "", fmt.Errorf("more than 1 devices found in non-interactive mode")
	}
	items := make([]string, len(devices))
	for n, d := range devices {
		items[n] = FormatDevice(d)
	}
	return devices[s.Shell.MultiChoice(items, "Which one to connect?")].Path, nil
}

// Connect stops the current session and starts a new one reading path.
func (s *Shell) Connect(path string) error {
	if err := s.Session.Stop(); err != nil {
		s.printf("previous session: %v\n", err)
	}
	port, err := s.Opener.Open(path)
	if err != nil {
		return err
	}
	if err := s.Session.Start(context.Background(), port); err != nil {
		port.Close()
		return err
	}
	s.Path = path
	s.setPrompt(fmt.Sprintf("%s > ", path))
	return nil
}

// Start reconnects the last connected device. A session whose transport
// already failed is replaced.
func (s *Shell) Start() error {
	if s.Path == "" {
		return transport.ErrNotConnected
	}
	if s.Session.Running() && s.Session.Err() == nil {
		return ingest.ErrAlreadyStarted
	}
	return s.Connect(s.Path)
}

// Stop stops the session. The device is remembered for Start.
func (s *Shell) Stop() error {
	err := s.Session.Stop()
	s.setPrompt(unconnectedPrompt)
	return err
}

// StartBackground runs the Runnables until StopBackground.
func (s *Shell) StartBackground() {
	if s.background == nil {
		s.background = fx.NewRunner().WithCancel().Go(s.Runnables...)
	}
}

// StopBackground stops the Runnables and releases the sinks.
func (s *Shell) StopBackground() error {
	var errs fx.AggregatedError
	if runner := s.background; runner != nil {
		s.background = nil
		errs.Add(runner.Stop())
	}
	if s.Env != nil {
		errs.Add(s.Env.Close())
	}
	return errs.Aggregate()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	s.StartBackground()
	defer s.StopBackground()
	defer s.Session.Stop()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

func (s *Shell) printf(format string, args ...interface{}) {
	if s.Shell != nil {
		s.Shell.Printf(format, args...)
		return
	}
	glog.Infof(format, args...)
}

func (s *Shell) printJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

var (
	// ListCmd lists serial devices.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"l", "ls"},
		Help:    "[usb] [FILTER...]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			args := c.Args
			usbOnly := len(args) > 0 && args[0] == "usb"
			if usbOnly {
				args = args[1:]
			}
			devices, err := s.Devices(usbOnly, args...)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if devices == nil {
					devices = []*msgs.DeviceInfo{}
				}
				s.printJSON(c, &msgs.DeviceList{Devices: devices})
				return
			}
			if len(devices) == 0 {
				c.Println("No devices found")
				return
			}
			for _, d := range devices {
				c.Println(FormatDevice(d))
			}
		},
	}

	// ConnectCmd opens a device and starts a session.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PATH]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var path string
			if len(c.Args) > 0 {
				path = c.Args[0]
			} else {
				var err error
				if path, err = s.SelectDevice(); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.Connect(path); err != nil {
				c.Err(err)
			}
		},
	}

	// StartCmd restarts the session on the last device.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Start(); err != nil {
				c.Err(err)
			}
		},
	}

	// StopCmd stops the session.
	StopCmd = ishell.Cmd{
		Name:    "stop",
		Aliases: []string{"disconnect", "d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Stop(); err != nil {
				c.Err(err)
			}
		},
	}

	// StatusCmd shows the session status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Session.Status()
			if s.OutputJSON {
				s.printJSON(c, &st)
				return
			}
			c.Println(FormatStatus(s.Path, st))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig().MustNewEnv()).Run(flag.Args()...)
}
