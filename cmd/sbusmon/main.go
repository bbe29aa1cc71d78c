package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sink/console"
	"github.com/robotalks/sbus.go/pkg/sink/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/sbus/"
	topic   = "#"
)

func init() {
	if val := os.Getenv("SBUS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic filter under the prefix, e.g. +/channels.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		switch m := msg.(type) {
		case *msgs.ChannelData:
			log.Printf("%s: %s", topic, console.FormatChannels(m))
		case *msgs.RawData:
			log.Printf("%s: %d bytes % x", topic, len(m.Data), m.Data)
		default:
			log.Printf("%s: [%s] %s", topic,
				reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
		}
	}))
	<-(chan struct{})(nil)
}
