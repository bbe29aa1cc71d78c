package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/transport"
)

type testSink struct {
	lock     sync.Mutex
	raw      []*msgs.RawData
	channels []*msgs.ChannelData
	err      error
}

func (s *testSink) PublishRaw(_ context.Context, msg *msgs.RawData) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.raw = append(s.raw, msg)
	return s.err
}

func (s *testSink) PublishChannels(_ context.Context, msg *msgs.ChannelData) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.channels = append(s.channels, msg)
	return s.err
}

func (s *testSink) rawBytes() (data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, m := range s.raw {
		data = append(data, m.Data...)
	}
	return
}

func (s *testSink) channelMsgs() []*msgs.ChannelData {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]*msgs.ChannelData(nil), s.channels...)
}

func channelsOf(t *testing.T, m *msgs.ChannelData) sbus.ChannelSet {
	cs, err := m.ChannelSet()
	require.NoError(t, err)
	return cs
}

func frameOf(codes ...uint16) sbus.Frame {
	var cs sbus.ChannelSet
	copy(cs[:], codes)
	return sbus.Encode(cs)
}

func filled(b byte) (f sbus.Frame) {
	for n := range f {
		f[n] = b
	}
	f[0], f[sbus.FrameLen-1] = sbus.StartByte, sbus.EndByte
	return
}

func TestSessionLatestWins(t *testing.T) {
	sink := &testSink{}
	s := NewSession(sink)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }

	for i := uint16(1); i <= 5; i++ {
		f := frameOf(i, i*2, i*3)
		s.HandleBytes(f[:])
	}
	require.NoError(t, s.FlushDecoded(context.Background()))
	require.NoError(t, s.FlushDecoded(context.Background()))

	published := sink.channelMsgs()
	require.Len(t, published, 1)
	require.Equal(t, sbus.ChannelSet{5, 10, 15}, channelsOf(t, published[0]))
	require.Equal(t, "03:04:05.000", published[0].Timestamp)
	require.Equal(t, uint32(1000), published[0].PulseWidths[0])

	st := s.Status()
	require.Equal(t, uint64(5), st.Stats.Frames)
	require.Equal(t, uint64(4), st.Stats.Superseded)
	require.Equal(t, uint64(1), st.Stats.ChannelSent)

	// a new frame is published once, on the next flush only.
	f := frameOf(7)
	s.HandleBytes(f[:])
	require.NoError(t, s.FlushDecoded(context.Background()))
	require.NoError(t, s.FlushDecoded(context.Background()))
	published = sink.channelMsgs()
	require.Len(t, published, 2)
	require.Equal(t, sbus.ChannelSet{7}, channelsOf(t, published[1]))
}

func TestSessionFlushRaw(t *testing.T) {
	sink := &testSink{}
	s := NewSession(sink)
	require.NoError(t, s.FlushRaw(context.Background()))
	require.Empty(t, sink.raw)

	s.HandleBytes([]byte{1, 2, 3})
	s.HandleBytes([]byte{4})
	require.NoError(t, s.FlushRaw(context.Background()))
	require.NoError(t, s.FlushRaw(context.Background()))
	require.Len(t, sink.raw, 1)
	require.Equal(t, []byte{1, 2, 3, 4}, sink.raw[0].Data)

	// published batches are not reused.
	s.HandleBytes([]byte{9, 9})
	require.Equal(t, []byte{1, 2, 3, 4}, sink.raw[0].Data)
	require.Equal(t, 2, s.Status().Pending)
}

func TestSessionRawLimit(t *testing.T) {
	sink := &testSink{}
	s := NewSession(sink)
	s.RawLimit = 10
	data := make([]byte, 25)
	for n := range data {
		data[n] = byte(n)
	}
	s.HandleBytes(data[:8])
	s.HandleBytes(data[8:])
	require.NoError(t, s.FlushRaw(context.Background()))
	require.Equal(t, data[15:], sink.rawBytes())
	require.Equal(t, uint64(15), s.Status().Stats.RawDropped)
}

func TestSessionPublishError(t *testing.T) {
	sink := &testSink{err: errors.New("offline")}
	s := NewSession(sink)
	f := frameOf(1)
	s.HandleBytes(f[:])
	require.EqualError(t, s.FlushRaw(context.Background()), "offline")
	require.EqualError(t, s.FlushDecoded(context.Background()), "offline")
	// nothing is retried.
	require.NoError(t, s.FlushRaw(context.Background()))
	require.NoError(t, s.FlushDecoded(context.Background()))
}

func startTestSession(t *testing.T, s *Session) *io.PipeWriter {
	r, w := io.Pipe()
	require.NoError(t, s.Start(context.Background(), r))
	return w
}

func TestSessionStartStop(t *testing.T) {
	sink := &testSink{}
	s := NewSession(sink)
	s.RawInterval, s.DecodedInterval = time.Millisecond, 2*time.Millisecond
	require.False(t, s.Running())

	w := startTestSession(t, s)
	require.True(t, s.Running())
	id := s.Status().ID
	require.NotEmpty(t, id)
	require.Equal(t, ErrAlreadyStarted, s.Start(context.Background(), &io.PipeReader{}))

	f := frameOf(100, 200, 300)
	_, err := w.Write(append([]byte{0x42}, f[:]...))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(sink.channelMsgs()) > 0 && len(sink.rawBytes()) == sbus.FrameLen+1
	}, time.Second, time.Millisecond)
	m := sink.channelMsgs()[0]
	require.Equal(t, sbus.ChannelSet{100, 200, 300}, channelsOf(t, m))
	require.Equal(t, id, m.SessionID)

	require.NoError(t, s.Stop())
	require.False(t, s.Running())
	require.NoError(t, s.Stop())

	// the pipe is closed by Stop.
	_, err = w.Write([]byte{1})
	require.Equal(t, io.ErrClosedPipe, err)
}

func TestSessionRestartIsClean(t *testing.T) {
	sink := &testSink{}
	s := NewSession(sink)
	s.RawInterval, s.DecodedInterval = time.Millisecond, time.Millisecond

	stale := filled(0x55)
	w := startTestSession(t, s)
	_, err := w.Write(stale[:10])
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Status().Buffered == 10 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	st := s.Status()
	require.Zero(t, st.Buffered)
	require.Zero(t, st.Pending)

	fresh := frameOf(11, 22, 33)
	w = startTestSession(t, s)
	defer s.Stop()
	_, err = w.Write(stale[10:])
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Status().Buffered == sbus.FrameLen-10 }, time.Second, time.Millisecond)
	_, err = w.Write(fresh[:])
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sink.channelMsgs()) > 0 }, time.Second, time.Millisecond)
	for _, m := range sink.channelMsgs() {
		assert.Equal(t, sbus.ChannelSet{11, 22, 33}, channelsOf(t, m))
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(b []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(b, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSessionTransportError(t *testing.T) {
	sink := &testSink{}
	s := NewSession(sink)
	s.RawInterval = time.Millisecond
	errCh := make(chan error, 1)
	s.ErrorHandler = HandleErrorFunc(func(_ context.Context, err error) {
		errCh <- err
	})
	f := frameOf(5)
	require.NoError(t, s.Start(context.Background(), &failingReader{data: f[:], err: io.ErrUnexpectedEOF}))

	var err error
	select {
	case err = <-errCh:
	case <-time.After(time.Second):
		t.Fatal("transport error not reported")
	}
	require.True(t, transport.IsTransportError(err))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	require.True(t, s.Running())
	require.Equal(t, err, s.Err())
	require.Equal(t, err.Error(), s.Status().ReadError)

	// the publish tasks keep running until Stop.
	require.Eventually(t, func() bool { return len(sink.rawBytes()) == sbus.FrameLen }, time.Second, time.Millisecond)

	err = s.Stop()
	require.Error(t, err)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	require.False(t, s.Running())
	require.NoError(t, s.Err())
	require.Empty(t, s.Status().ReadError)
}

func TestSessionDropsBytesAfterStop(t *testing.T) {
	s := NewSession(&testSink{})
	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, s.deliver(ctx, []byte{1, 2}))
	cancel()
	require.False(t, s.deliver(ctx, []byte{3}))
	require.Equal(t, 2, s.Status().Pending)
}

func TestSessionNoSink(t *testing.T) {
	s := NewSession(nil)
	require.Equal(t, ErrNoSink, s.Start(context.Background(), &failingReader{err: io.EOF}))
	require.False(t, s.Running())
}

func TestConfigNewSession(t *testing.T) {
	conf := NewConfig()
	conf.RawInterval, conf.RawLimit = time.Second, 7
	s := conf.NewSession(&testSink{})
	require.Equal(t, time.Second, s.RawInterval)
	require.Equal(t, DefaultDecodedInterval, s.DecodedInterval)
	require.Equal(t, 7, s.RawLimit)
	require.Equal(t, DefaultRawInterval, Default().RawInterval)
}

func TestSinkMux(t *testing.T) {
	a, b := &testSink{}, &testSink{err: errors.New("b down")}
	mux := NewSinkMux(a)
	mux.Add(b)
	err := mux.PublishRaw(context.Background(), &msgs.RawData{Data: []byte{1}})
	require.EqualError(t, err, "b down")
	require.Len(t, a.raw, 1)
	require.Len(t, b.raw, 1)
	require.NoError(t, NewSinkMux(a).PublishChannels(context.Background(), &msgs.ChannelData{}))
}
