package main

import (
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/chaintracker"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
	"github.com/ledgerclerk/ledgerclerk/pkg/receivers"
	"github.com/ledgerclerk/ledgerclerk/pkg/rpc"
	"github.com/ledgerclerk/ledgerclerk/pkg/scanner"
	"github.com/ledgerclerk/ledgerclerk/pkg/services"
	"github.com/ledgerclerk/ledgerclerk/pkg/store"
	"github.com/ledgerclerk/ledgerclerk/pkg/webapi"
	"github.com/rs/zerolog/log"
)

func Server(conf clerk.Config) {

	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
	)

	program, err := conf.Program()
	if err != nil {
		log.Fatal().Err(err).Msg("program")
	}

	// Start the MessageBus Service
	bus := clerk.NewMessageBus()
	c.Service("MessageBus", bus)

	// Set up all configured receivers
	receivers.SetUpReceivers(c, bus, conf)

	// Set up the Solana JSON-RPC fetcher
	fetcher, err := rpc.NewSolanaRPC(conf)
	if err != nil {
		log.Fatal().Err(err).Msg("rpc")
	}

	// Setup a Store
	store, err := store.NewStore(conf)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	defer store.Close()

	scan := newScanner(conf, fetcher)

	// Start the program watcher (websocket programSubscribe)
	watcher, err := chaintracker.StartChainTracker(c, conf, program)
	if err != nil {
		log.Fatal().Err(err).Msg("chaintracker")
	}

	// Start internal services
	poller, err := services.StartServices(c, bus, conf, store, scan, watcher)
	if err != nil {
		log.Fatal().Err(err).Msg("services")
	}

	api := clerk.NewAPI(store, poller, program, conf)

	// Start the dashboard API
	p, err := webapi.NewWebAPI(conf, api)
	if err != nil {
		log.Fatal().Err(err).Msg("webapi")
	}
	c.Service("Dashboard API", p)

	bus.Send(clerk.SYS_STARTUP, map[string]string{"program": program.String(), "network": conf.Clerk.Network})
	<-c.Start()
}

func newScanner(conf clerk.Config, fetcher clerk.AccountFetcher) *scanner.Scanner {
	return scanner.NewScanner(fetcher,
		scanner.WithWorkers(conf.Scanner.Workers),
		scanner.WithVerify(conf.Scanner.VerifyAddresses),
	)
}

func scanTimeout(conf clerk.Config) time.Duration {
	if conf.Scanner.TimeoutSeconds <= 0 {
		return services.DEFAULT_TIMEOUT
	}
	return time.Duration(conf.Scanner.TimeoutSeconds) * time.Second
}
