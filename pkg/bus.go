package clerk

/*
The message subsystem exists to allow event-based access to what the
scanner sees on-chain, for integration purposes.

A simple internal 'message bus' is passed around internally as a
singleton, with an internal goroutine and a 'send' method for sending
'messages'.

outbound destinations are created in config, which result in these
messages being routed to various external services, ie: MQTT, HTTP
callbacks, log-files, etc. These are managed by MessageSubscribers:

MessageSubscribers are registered with the bus and are subscribed via
their own channels along with a list of EventTypes they want to subscribe
to.
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MessageSubscribers are things that subscribe to the bus and handle
// messages, ie: MQTT, http callbacks etc.
type MessageSubscriber interface {
	GetChan() chan Message
}

// Created by the bus, wraps message sent with Send
type Message struct {
	EventType EventType
	Message   []byte
	ID        string // optional
}

// MarshalJSON renders the message for external receivers, with the
// payload inline rather than base64.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string          `json:"type"`
		Event   string          `json:"event"`
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}{m.EventType.Type(), fmt.Sprint(m.EventType), m.ID, json.RawMessage(m.Message)})
}

type Subscription struct {
	dest  MessageSubscriber
	types []EventType
}

// wants reports whether this subscription takes messages of type t.
func (s *Subscription) wants(t EventType) bool {
	for _, st := range s.types {
		if st.Type() == "ALL" || st.Type() == t.Type() {
			return true
		}
	}
	return false
}

func NewMessageBus() MessageBus {
	return MessageBus{
		receivers: make(map[*Subscription]bool),
		inbound:   make(chan Message, 64),
		mu:        &sync.Mutex{},
	}
}

type MessageBus struct {
	// Registered MessageSubscribers.
	receivers map[*Subscription]bool

	// Messages from Send(), destinated for MessageSubscribers
	inbound chan Message

	mu *sync.Mutex
}

// Send a message to the bus with a specific EventType
// msg can be anything JSON serialisable, this will be
// turned into a Message and delivered to any interested MessageSubscribers
func (b MessageBus) Send(t EventType, msg any, msgID ...string) error {
	j, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if len(msgID) == 0 {
		b.inbound <- Message{t, j, uuid.NewString()}
	} else {
		b.inbound <- Message{t, j, msgID[0]}
	}
	return nil
}

func (b MessageBus) Register(m MessageSubscriber, types ...EventType) *Subscription {
	sub := &Subscription{m, types}
	b.mu.Lock()
	b.receivers[sub] = true
	b.mu.Unlock()
	return sub
}

func (b MessageBus) Unregister(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receivers[sub] {
		delete(b.receivers, sub)
		close(sub.dest.GetChan())
	}
}

func (b MessageBus) deliver(message Message) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.receivers))
	for sub := range b.receivers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		// check if this receiver wants this message type
		if !sub.wants(message.EventType) {
			continue
		}

		// send the message to the receiver
		select {
		case sub.dest.GetChan() <- message:
		default:
			// if we are unable to send, cancel the sub
			log.Error().Str("component", "MessageBus").Str("event", message.EventType.Type()).
				Msg("receiver failed to handle msg, closing")
			b.Unregister(sub)
		}
	}
}

// Implements conductor Service
func (b MessageBus) Run(started, stopped chan bool, stop chan context.Context) error {

	go func() {
		stopBus := make(chan bool)
		go func() {
			for {
				select {
				case <-stopBus:
					return
				case message := <-b.inbound:
					b.deliver(message)
				}
			}
		}()

		started <- true
		// wait for shutdown.
		<-stop
		// do some shutdown stuff then signal we're done
		close(stopBus)
		stopped <- true
	}()
	return nil
}
