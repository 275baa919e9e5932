package services

import (
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/chaintracker"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
)

func StartServices(cond *conductor.Conductor, bus clerk.MessageBus, conf clerk.Config, store clerk.Store, scanner ProgramScanner, watcher *chaintracker.ProgramWatcher) (*Poller, error) {
	program, err := conf.Program()
	if err != nil {
		return nil, err
	}
	// Poller rescans on program changes and sends INV/VEN/ORG/REQ/SCAN events.
	poller := NewPoller(scanner, store, bus, program,
		time.Duration(conf.Scanner.IntervalSeconds)*time.Second,
		time.Duration(conf.Scanner.TimeoutSeconds)*time.Second)
	if watcher != nil {
		watcher.Subscribe(poller.Changes(), false)
	}
	cond.Service("Poller", poller)
	return poller, nil
}
