// Package env sets up the daemon from flags and environment variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/ingest"
	"github.com/robotalks/sbus.go/pkg/sink/console"
	"github.com/robotalks/sbus.go/pkg/sink/mqtt"
	"github.com/robotalks/sbus.go/pkg/sink/stream"
	"github.com/robotalks/sbus.go/pkg/sink/websocket"
)

// WebsocketPath is where the websocket Hub is served.
const WebsocketPath = "/ws"

// Config provides the options of the daemon.
type Config struct {
	// ID identifies the receiver in published topics.
	ID string
	// Port is the serial device path.
	Port string
	// MQTTBrokerURL specifies the MQTT broker to publish to.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// HTTPAddr is the listen address of the websocket server.
	HTTPAddr string
	// Console enables logging channel snapshots.
	Console bool
	// StreamOut is a file receiving length-prefixed envelopes, "-" for stdout.
	StreamOut string

	Ingest *ingest.Config
}

var defaultConfig = Config{
	Ingest: ingest.Default(),
}

func init() {
	defaultConfig.ID = MachineID()
	if val := os.Getenv("SBUS_ID"); val != "" {
		defaultConfig.ID = val
	}
	defaultConfig.Port = os.Getenv("SBUS_PORT")
	defaultConfig.MQTTBrokerURL = os.Getenv("SBUS_MQTT_URL")
	defaultConfig.HTTPAddr = os.Getenv("SBUS_HTTP")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Receiver ID")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port path")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "Websocket listen address")
	flag.BoolVar(&defaultConfig.Console, "console", defaultConfig.Console, "Log channel snapshots")
	flag.StringVar(&defaultConfig.StreamOut, "stream", defaultConfig.StreamOut, "Write framed messages to file, - for stdout")
	ingest.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	ingestConf := *defaultConfig.Ingest
	conf.Ingest = &ingestConf
	return &conf
}

// Env is the wired set of sinks of the daemon.
type Env struct {
	Config    *Config
	Sink      *ingest.SinkMux
	Publisher *mqtt.Publisher
	Hub       *websocket.Hub
	Stream    *stream.Writer
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("receiver id must be specified")
	}
	env := &Env{Config: c, Sink: ingest.NewSinkMux()}
	if c.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, mqtt.Meta{
			ID:              c.ID,
			Port:            c.Port,
			RawInterval:     c.Ingest.RawInterval.String(),
			DecodedInterval: c.Ingest.DecodedInterval.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %v", err)
		}
		env.Publisher = pub
		env.Sink.Add(pub)
	}
	if c.HTTPAddr != "" {
		env.Hub = websocket.NewHub()
		env.Sink.Add(env.Hub)
	}
	switch c.StreamOut {
	case "":
	case "-":
		env.Stream = stream.NewWriter(os.Stdout)
	default:
		f, err := os.OpenFile(c.StreamOut, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		env.Stream = stream.NewWriter(f)
	}
	if env.Stream != nil {
		env.Sink.Add(env.Stream)
	}
	if c.Console || len(env.Sink.Sinks) == 0 {
		// stdout carries the framed stream with -stream -, use glog then.
		var out io.Writer = os.Stdout
		if c.StreamOut == "-" {
			out = nil
		}
		env.Sink.Add(console.New(out))
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// Close releases the stream output file.
func (e *Env) Close() error {
	if e.Stream != nil && e.Config.StreamOut != "-" {
		return e.Stream.Close()
	}
	return nil
}

// NewSession creates an ingest.Session publishing to all sinks.
func (e *Env) NewSession() *ingest.Session {
	return e.Config.Ingest.NewSession(e.Sink)
}

// Runnables returns the background tasks of the sinks.
func (e *Env) Runnables() (runners []fx.Runnable) {
	if e.Publisher != nil {
		runners = append(runners, fx.NamedRun("mqtt", e.Publisher))
	}
	if e.Hub != nil {
		mux := http.NewServeMux()
		mux.Handle(WebsocketPath, e.Hub)
		runners = append(runners, fx.NamedRun("http", &HTTPServer{
			Server: &http.Server{Addr: e.Config.HTTPAddr, Handler: mux},
		}))
	}
	return
}

// HTTPServer runs an http.Server as a Runnable.
type HTTPServer struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
}

// Run implements Runnable.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("http listening on %s", s.Server.Addr)
		errCh <- s.Server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return ctx.Err()
}
