package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/transport"
)

// Defaults of Session.
const (
	DefaultRawInterval     = 25 * time.Millisecond
	DefaultDecodedInterval = 50 * time.Millisecond
	DefaultRawLimit        = 4096
	DefaultReadSize        = 256
)

var (
	// ErrAlreadyStarted indicates Start is called on a running Session.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNoSink indicates the Session has no Sink to publish to.
	ErrNoSink = errors.New("no sink")
)

// Stats are cumulative counters of a Session.
type Stats struct {
	Frames      uint64 // frames decoded
	Superseded  uint64 // decoded frames replaced before being published
	RawBytes    uint64 // bytes received
	RawDropped  uint64 // bytes dropped from the raw batch by RawLimit
	RawSent     uint64 // raw batches published
	ChannelSent uint64 // channel snapshots published
}

// Status is a point-in-time view of a Session.
type Status struct {
	ID        string
	Running   bool
	Buffered  int
	Pending   int
	// ReadError is the transport error which ended the reader.
	ReadError string
	Stats     Stats
	Framer    sbus.FramerStats
}

// Session owns the framer and the publish buffers of one ingestion session.
type Session struct {
	Sink         Sink
	ErrorHandler ErrorHandler

	RawInterval     time.Duration
	DecodedInterval time.Duration
	// RawLimit caps the raw batch between flushes. Oldest bytes are
	// dropped first. Zero or negative means unlimited.
	RawLimit int
	// ReadSize is the buffer size for each Read from the transport.
	ReadSize int

	now func() time.Time

	lock   sync.Mutex
	id     string
	framer sbus.Framer
	raw    []byte
	latest *sbus.ChannelSet
	stats  Stats
	err    error

	runLock sync.Mutex
	runner  *fx.Runner
}

// NewSession creates a Session with defaults.
func NewSession(sink Sink) *Session {
	return &Session{
		Sink:            sink,
		RawInterval:     DefaultRawInterval,
		DecodedInterval: DefaultDecodedInterval,
		RawLimit:        DefaultRawLimit,
		ReadSize:        DefaultReadSize,
	}
}

// HandleBytes consumes one chunk from the transport.
func (s *Session) HandleBytes(chunk []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handleBytes(chunk)
}

func (s *Session) handleBytes(chunk []byte) {
	s.stats.RawBytes += uint64(len(chunk))
	s.raw = append(s.raw, chunk...)
	if limit := s.RawLimit; limit > 0 && len(s.raw) > limit {
		drop := len(s.raw) - limit
		s.raw = append(s.raw[:0], s.raw[drop:]...)
		s.stats.RawDropped += uint64(drop)
	}
	for _, f := range s.framer.Feed(chunk) {
		cs, err := sbus.Decode(f)
		if err != nil {
			continue
		}
		if s.latest != nil {
			s.stats.Superseded++
		}
		s.latest = &cs
		s.stats.Frames++
	}
}

// FlushRaw publishes the raw batch if it's not empty.
func (s *Session) FlushRaw(ctx context.Context) error {
	s.lock.Lock()
	data, id := s.raw, s.id
	s.raw = nil
	if len(data) > 0 {
		s.stats.RawSent++
	}
	s.lock.Unlock()
	if len(data) == 0 {
		return nil
	}
	return s.Sink.PublishRaw(ctx, &msgs.RawData{Data: data, SessionID: id})
}

// FlushDecoded publishes the latest decoded channels if there are any.
func (s *Session) FlushDecoded(ctx context.Context) error {
	s.lock.Lock()
	latest, id := s.latest, s.id
	s.latest = nil
	if latest != nil {
		s.stats.ChannelSent++
	}
	s.lock.Unlock()
	if latest == nil {
		return nil
	}
	msg := msgs.NewChannelData(*latest, s.timeNow())
	msg.SessionID = id
	return s.Sink.PublishChannels(ctx, msg)
}

// Start attaches src and arms both publish tasks. The Session reads src
// until Stop is called or a Read fails. If src is an io.Closer it is closed
// when the session stops; otherwise Stop waits for a pending Read to return.
func (s *Session) Start(ctx context.Context, src io.Reader) error {
	if s.Sink == nil {
		return ErrNoSink
	}
	s.runLock.Lock()
	defer s.runLock.Unlock()
	if s.runner != nil {
		return ErrAlreadyStarted
	}

	id := uuid.New().String()
	s.lock.Lock()
	s.reset()
	s.id = id
	s.lock.Unlock()

	runner := fx.NewRunnerWith(ctx).WithCancel()
	runner.Go(
		fx.NamedRun("raw-flush", fx.Every(durationOr(s.RawInterval, DefaultRawInterval), s.publishTask(s.FlushRaw))),
		fx.NamedRun("decoded-flush", fx.Every(durationOr(s.DecodedInterval, DefaultDecodedInterval), s.publishTask(s.FlushDecoded))),
		fx.NamedRun("reader", fx.RunFunc(func(ctx context.Context) error {
			return s.read(ctx, src)
		})),
	)
	s.runner = runner
	glog.Infof("session %s started", id)
	return nil
}

// Stop detaches the transport, cancels the publish tasks and clears all
// buffered state. It is a no-op if the Session isn't running.
// It returns the transport error which ended the reader, if any.
func (s *Session) Stop() error {
	s.runLock.Lock()
	defer s.runLock.Unlock()
	runner := s.runner
	if runner == nil {
		return nil
	}
	s.runner = nil
	err := runner.Stop()

	s.lock.Lock()
	id := s.id
	s.reset()
	s.id = ""
	s.lock.Unlock()
	glog.Infof("session %s stopped", id)
	return err
}

// Running tells if the Session is started. It stays true after the reader
// ended with a transport error, until Stop is called.
func (s *Session) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.id != ""
}

// Err returns the transport error which ended the reader of the running
// session, or nil.
func (s *Session) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	st := Status{
		ID:       s.id,
		Running:  s.id != "",
		Buffered: s.framer.Buffered(),
		Pending:  len(s.raw),
		Stats:    s.stats,
		Framer:   s.framer.Stats(),
	}
	if s.err != nil {
		st.ReadError = s.err.Error()
	}
	return st
}

func (s *Session) reset() {
	s.framer.Reset()
	s.raw, s.latest, s.err = nil, nil, nil
}

func (s *Session) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Session) publishTask(flush func(context.Context) error) func(context.Context) {
	return func(ctx context.Context) {
		if err := flush(ctx); err != nil {
			glog.Warningf("publish error: %v", err)
		}
	}
}

// deliver feeds chunk unless ctx has ended, in which case the session it
// belonged to is stopped and the bytes must not leak into the next one.
func (s *Session) deliver(ctx context.Context, chunk []byte) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.handleBytes(chunk)
	return true
}

func (s *Session) read(ctx context.Context, src io.Reader) error {
	size := s.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	readLoop := func() error {
		buf := make([]byte, size)
		for {
			n, err := src.Read(buf)
			if n > 0 && !s.deliver(ctx, buf[:n]) {
				return ctx.Err()
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				if !transport.IsTransportError(err) {
					err = &transport.Error{Op: "read", Err: err}
				}
				glog.Warningf("transport error: %v", err)
				s.lock.Lock()
				if ctx.Err() == nil {
					s.err = err
				}
				s.lock.Unlock()
				if h := s.ErrorHandler; h != nil {
					h.HandleError(ctx, err)
				}
				return err
			}
		}
	}
	if closer, ok := src.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, readLoop)
	}
	return fx.RunWithContext(ctx, readLoop)
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
