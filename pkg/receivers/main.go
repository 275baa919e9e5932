package receivers

import (
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
	"github.com/rs/zerolog/log"
)

// Sets up standard receivers.
func SetUpReceivers(cond *conductor.Conductor, bus clerk.MessageBus, conf clerk.Config) {
	// Set up configured loggers
	SetupLoggers(cond, bus, conf)

	// Set up configured Callbacks
	SetupCallbacks(cond, bus, conf)

	// Set up configured MQTT brokers
	SetupMQTTs(cond, bus, conf)
}

// eventTypes maps configured type names to bus categories, skipping
// names it doesn't know.
func eventTypes(receiver, name string, names []string) []clerk.EventType {
	types := []clerk.EventType{}
	for _, n := range names {
		t, ok := clerk.EventTypeByName(n)
		if !ok {
			log.Warn().Str("receiver", receiver).Str("name", name).Str("type", n).Msg("ignoring invalid message type")
			continue
		}
		types = append(types, t)
	}
	return types
}
