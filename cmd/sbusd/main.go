package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/env"
	fx "github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/ingest"
	"github.com/robotalks/sbus.go/pkg/transport/serial"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	if conf.Port == "" {
		log.Fatalln("serial port must be specified by -port or SBUS_PORT")
	}
	e := conf.MustNewEnv()
	port, err := serial.Open(conf.Port)
	if err != nil {
		log.Fatalln(err)
	}

	runner := fx.NewRunner().HandleSignals()
	session := e.NewSession()
	session.ErrorHandler = ingest.HandleErrorFunc(func(_ context.Context, err error) {
		glog.Errorf("session %s: %v", conf.Port, err)
		runner.Cancel()
	})
	if err := session.Start(runner.Context, port); err != nil {
		port.Close()
		log.Fatalln(err)
	}
	runner.Go(e.Runnables()...)
	runner.Go(fx.NamedRun("session", fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return session.Stop()
	})))
	err = runner.Wait()
	e.Close()
	if err != nil {
		log.Fatalln(err)
	}
}
