package receivers

import (
	"context"
	"fmt"
	"io"
	"log"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MessageLogger struct {
	// MessageLogger receives clerk.Message via Rec
	Rec chan clerk.Message
	// and logs them via Log
	Log *log.Logger
}

// Implements clerk.MessageSubscriber
func (l MessageLogger) GetChan() chan clerk.Message {
	return l.Rec
}

// Implements conductor.Service
func (l MessageLogger) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				close(stopped)
				return
			case msg, ok := <-l.Rec:
				if !ok {
					// unregistered by the bus.
					<-stop
					close(stopped)
					return
				}
				l.Log.Printf("%s:%s (%s): %s\n",
					msg.EventType.Type(),
					msg.EventType,
					msg.ID,
					msg.Message)
			}
		}
	}()
	return nil
}

// NewMessageLogger writes bus messages to a rotated log file at path.
func NewMessageLogger(path string) MessageLogger {
	return newMessageLogger(&lumberjack.Logger{
		Filename: path,
		Compress: true,
	})
}

func newMessageLogger(w io.Writer) MessageLogger {
	return MessageLogger{
		make(chan clerk.Message, 1000),
		log.New(w, "", log.Ltime|log.Lmicroseconds),
	}
}

// Reads config and sets up any configured loggers
func SetupLoggers(cond *conductor.Conductor, bus clerk.MessageBus, conf clerk.Config) {
	for name, c := range conf.Loggers {
		l := NewMessageLogger(c.Path)
		cond.Service(fmt.Sprintf("Logger %s", c.Path), l)
		bus.Register(l, eventTypes("Logger", name, c.Types)...)
	}
}
