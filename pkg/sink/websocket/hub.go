// Package websocket streams session feeds to websocket clients as JSON.
package websocket

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sbus.go/pkg/msgs"
)

// DefaultQueueSize is the number of frames buffered per client.
const DefaultQueueSize = 16

// Frame types.
const (
	TypeRaw      = "raw"
	TypeChannels = "channels"
)

// Frame is the JSON message sent to clients. Raw bytes are sent as an
// array of numbers like the channels.
type Frame struct {
	Type        string   `json:"type"`
	SessionID   string   `json:"session_id,omitempty"`
	Data        []uint32 `json:"data,omitempty"`
	Channels    []uint32 `json:"channels,omitempty"`
	PulseWidths []uint32 `json:"pulse_widths,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// Hub implements ingest.Sink and http.Handler. Each connected client gets
// every published frame unless its queue is full, in which case the frame
// is dropped for that client only.
type Hub struct {
	QueueSize int

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	frames  chan *Frame
	dropped uint64
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{QueueSize: DefaultQueueSize}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// PublishRaw implements ingest.Sink.
func (h *Hub) PublishRaw(_ context.Context, msg *msgs.RawData) error {
	data := make([]uint32, len(msg.Data))
	for n, b := range msg.Data {
		data[n] = uint32(b)
	}
	h.broadcast(&Frame{Type: TypeRaw, SessionID: msg.SessionID, Data: data})
	return nil
}

// PublishChannels implements ingest.Sink.
func (h *Hub) PublishChannels(_ context.Context, msg *msgs.ChannelData) error {
	h.broadcast(&Frame{
		Type:        TypeChannels,
		SessionID:   msg.SessionID,
		Channels:    msg.Channels,
		PulseWidths: msg.PulseWidths,
		Timestamp:   msg.Timestamp,
	})
	return nil
}

func (h *Hub) broadcast(f *Frame) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.frames <- f:
		default:
			atomic.AddUint64(&c.dropped, 1)
		}
	}
}

func (h *Hub) add() *client {
	size := h.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := &client{frames: make(chan *Frame, size)}
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*client]struct{})
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	delete(h.clients, c)
	h.lock.Unlock()
	if dropped := atomic.LoadUint64(&c.dropped); dropped > 0 {
		glog.V(1).Infof("websocket client dropped %d frames", dropped)
	}
}

// Serve streams frames to conn until either side closes.
func (h *Hub) Serve(conn *websocket.Conn) {
	defer conn.Close()
	c := h.add()
	defer h.remove(c)
	glog.V(1).Infof("websocket client %s connected", conn.Request().RemoteAddr)

	// clients don't send anything, reading only detects close.
	closed := make(chan struct{})
	go func() {
		io.Copy(ioutil.Discard, conn)
		close(closed)
	}()
	for {
		select {
		case f := <-c.frames:
			if err := websocket.JSON.Send(conn, f); err != nil {
				glog.V(1).Infof("websocket send error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

// Handler returns the websocket handler of the Hub.
func (h *Hub) Handler() websocket.Handler {
	return websocket.Handler(h.Serve)
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Handler().ServeHTTP(w, r)
}
