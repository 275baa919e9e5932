package receivers

import (
	"context"
	"encoding/json"
	"fmt"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yosssi/gmq/mqtt"
	"github.com/yosssi/gmq/mqtt/client"
)

func NewMQTTSender(config clerk.MQTTConfig, bus clerk.MessageBus) MQTTSender {
	return MQTTSender{
		Rec:    make(chan clerk.Message, 1000),
		Config: config,
		Bus:    bus,
		log:    log.With().Str("component", "MQTTSender").Str("address", config.Address).Logger(),
	}
}

type MQTTSender struct {
	// incomming msgs
	Rec    chan clerk.Message
	Config clerk.MQTTConfig
	Bus    clerk.MessageBus
	log    zerolog.Logger
}

// Implements clerk.MessageSubscriber
func (s MQTTSender) GetChan() chan clerk.Message {
	return s.Rec
}

// TopicFor is the topic a message is published on, ie: ledgerclerk/INV/STATUS_CHANGED
func TopicFor(base string, msg clerk.Message) string {
	return fmt.Sprintf("%s/%s/%s", base, msg.EventType.Type(), msg.EventType)
}

// Implements conductor.Service
func (s MQTTSender) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		cli := client.New(&client.Options{
			// Define the processing of the error handler.
			ErrorHandler: func(err error) {
				s.log.Error().Err(err).Msg("client error")
			},
		})

		// connect to MQTT broker
		err := cli.Connect(&client.ConnectOptions{
			Network:  "tcp",
			Address:  s.Config.Address,
			ClientID: []byte(s.Config.ClientID),
			UserName: []byte(s.Config.Username),
			Password: []byte(s.Config.Password),
		})
		if err != nil {
			s.log.Error().Err(err).Msg("connection failure")
			s.Bus.Send(clerk.SYS_ERR, fmt.Sprintf("MQTTSender connection failure %s", err))
			// keep draining so the bus doesn't drop us mid-startup.
			started <- true
			for {
				select {
				case <-stop:
					close(stopped)
					return
				case <-s.Rec:
				}
			}
		}
		defer cli.Terminate()

		// Successfully started up
		started <- true

		for {
			select {
			// handle stopping the service
			case <-stop:
				cli.Disconnect()
				close(stopped)
				return
			case msg, ok := <-s.Rec:
				if !ok {
					<-stop
					cli.Disconnect()
					close(stopped)
					return
				}
				// We don't publish SYS msgs (to avoid loops on err)
				if msg.EventType.Type() == "SYS" {
					continue
				}
				jsonMsg, err := json.Marshal(msg)
				if err != nil {
					s.log.Error().Err(err).Str("id", msg.ID).Msg("failed to marshal msg")
					continue
				}
				err = cli.Publish(&client.PublishOptions{
					QoS:       mqtt.QoS0,
					TopicName: []byte(TopicFor(s.Config.Topic, msg)),
					Message:   jsonMsg,
				})
				if err != nil {
					s.log.Error().Err(err).Str("id", msg.ID).Msg("publish failed")
				}
			}
		}
	}()
	return nil
}

func SetupMQTTs(cond *conductor.Conductor, bus clerk.MessageBus, conf clerk.Config) {
	for name, c := range conf.MQTT {
		if c.Address == "" {
			log.Warn().Str("mqtt", name).Msg("no broker address, skipping")
			continue
		}
		s := NewMQTTSender(c, bus)
		cond.Service(fmt.Sprintf("MQTT sender %s", name), s)
		bus.Register(s, eventTypes("MQTT", name, c.Types)...)
	}
}
