package chaintracker

import (
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
)

func StartChainTracker(c *conductor.Conductor, conf clerk.Config, program clerk.Address) (*ProgramWatcher, error) {
	node, err := conf.Node()
	if err != nil {
		return nil, err
	}
	fallback := time.Duration(conf.Scanner.FallbackSeconds) * time.Second
	w := NewProgramWatcher(node.WSURL, program, node.Commitment, fallback)
	c.Service("ProgramWatcher", w)
	return w, nil
}
