package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/msgs"
)

// Topic suffixes under the receiver ID.
const (
	TopicRaw      = "raw"
	TopicChannels = "channels"
	TopicMeta     = "meta"
)

// DefaultPublishTimeout bounds waiting for a publish token.
const DefaultPublishTimeout = time.Second

// ErrPublishTimeout indicates the broker didn't complete a publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// Meta describes the receiver, published retained.
type Meta struct {
	ID              string `json:"id"`
	Port            string `json:"port,omitempty"`
	RawInterval     string `json:"raw_interval,omitempty"`
	DecodedInterval string `json:"decoded_interval,omitempty"`
}

// Publisher implements ingest.Sink over a Queue.
type Publisher struct {
	dropped uint64

	Queue   *Queue
	Meta    Meta
	Timeout time.Duration

	metaJSON []byte
}

// MetaTopic returns the topic of meta for receiver id.
func MetaTopic(id string) string {
	return id + "/" + TopicMeta
}

// NewPublisher creates a Publisher connecting to brokerURL.
func NewPublisher(brokerURL string, meta Meta) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(meta.ID), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID(DefaultClientIDPrefix + meta.ID)
	}
	p := NewPublisherWith(NewQueue(opts, topicPrefix), meta)
	return p, nil
}

// NewPublisherWith creates a Publisher using an existing Queue.
func NewPublisherWith(q *Queue, meta Meta) *Publisher {
	data, err := json.Marshal(&meta)
	if err != nil {
		panic(err)
	}
	p := &Publisher{Queue: q, Meta: meta, metaJSON: data}
	q.OnConnect = func(*Queue) { p.publishMeta(p.metaJSON) }
	return p
}

// PublishRaw implements ingest.Sink.
func (p *Publisher) PublishRaw(ctx context.Context, msg *msgs.RawData) error {
	return p.publish(ctx, TopicRaw, msg)
}

// PublishChannels implements ingest.Sink.
func (p *Publisher) PublishChannels(ctx context.Context, msg *msgs.ChannelData) error {
	return p.publish(ctx, TopicChannels, msg)
}

// Run implements Runnable. It connects, keeps the retained meta while
// running and clears it on exit.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	p.publishMeta(nil)
	return p.Queue.Close()
}

// Dropped returns the number of feed messages skipped while the client was
// not connected.
func (p *Publisher) Dropped() uint64 {
	return atomic.LoadUint64(&p.dropped)
}

// publish doesn't wait for the broker. Messages are dropped while the client
// is offline and delivery failures are only logged.
func (p *Publisher) publish(ctx context.Context, suffix string, msg msgs.SerializableMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Queue.Client.IsConnected() {
		atomic.AddUint64(&p.dropped, 1)
		return nil
	}
	payload, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	topic := p.Meta.ID + "/" + suffix
	token := p.Queue.Pub(topic, payload)
	go func() {
		if err := p.wait(token); err != nil {
			glog.Warningf("publish %s error: %v", topic, err)
		}
	}()
	return nil
}

func (p *Publisher) publishMeta(data []byte) {
	if err := p.wait(p.Queue.PubWith(MetaTopic(p.Meta.ID), data, 1, true)); err != nil {
		glog.Warningf("publish meta error: %v", err)
	}
}

func (p *Publisher) wait(token paho.Token) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}
