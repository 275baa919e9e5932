/*
Package conductor starts a set of long-running services in order and
stops them together.

A Service is started with Run(started, stopped, stop): it must signal
started once it is ready, exit its loop when a context arrives on stop,
and then signal (or close) stopped.
*/
package conductor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Service interface {
	Run(started chan bool, stopped chan bool, stop chan context.Context) error
}

type serviceState struct {
	name     string
	service  Service
	ready    chan bool
	stopped  chan bool
	shutdown chan context.Context
}

type Conductor struct {
	started      bool          // Have we been started yet?
	startTimeout time.Duration // How long to wait for each service to start before giving up
	stopTimeout  time.Duration // How long to wait for services to stop
	shutdown     chan bool     // closed when everything has stopped, returned from Start()
	stopOnce     sync.Once
	services     []*serviceState
	log          zerolog.Logger
}

// NewConductor accepts Option funcs for changing default behaviours.
func NewConductor(opts ...func(*Conductor)) *Conductor {
	c := Conductor{
		startTimeout: startupTimeout,
		stopTimeout:  shutdownTimeout,
		shutdown:     make(chan bool),
		services:     []*serviceState{},
		log:          zerolog.Nop(),
	}

	for _, optFn := range opts {
		optFn(&c)
	}
	return &c
}

// Service adds a named service, started in the order added.
func (c *Conductor) Service(name string, service Service) {
	if c.started {
		panic("Cannot call Conductor.Service after Conductor.Start")
	}
	c.services = append(c.services,
		&serviceState{name, service, make(chan bool, 1), make(chan bool, 1), make(chan context.Context, 1)})
}

// Start runs each service in turn, waiting for it to be ready before
// starting the next. The returned channel closes once everything stops.
func (c *Conductor) Start() chan bool {
	c.started = true

	for i, srv := range c.services {
		c.log.Info().Str("service", srv.name).Msg("starting")
		err := srv.service.Run(srv.ready, srv.stopped, srv.shutdown)
		if err != nil {
			// Service has failed to start with an error, shutdown everything
			c.log.Error().Err(err).Str("service", srv.name).Msg("failed to start")
			c.stopServices(c.services[:i])
			break
		}
		select {
		case <-time.After(c.startTimeout):
			c.log.Error().Str("service", srv.name).Dur("timeout", c.startTimeout).Msg("timed out during startup")
			c.stopServices(c.services[:i+1])
			return c.shutdown
		case <-srv.ready:
			c.log.Info().Str("service", srv.name).Msg("ready")
		}
	}
	return c.shutdown
}

// Stop asks every service to shut down within the stop timeout.
func (c *Conductor) Stop() {
	c.stopServices(c.services)
}

// stopServices stops services one at a time in reverse start order, so a
// service never outlives the ones it depends on.
func (c *Conductor) stopServices(services []*serviceState) {
	c.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
		defer cancel()

		for i := len(services) - 1; i >= 0; i-- {
			s := services[i]
			c.log.Info().Str("service", s.name).Msg("requesting shutdown")
			s.shutdown <- ctx
			select {
			case <-s.stopped:
				c.log.Info().Str("service", s.name).Msg("shutdown complete")
			case <-ctx.Done():
				c.log.Warn().Str("service", s.name).Msg("timeout exceeded waiting for service to stop")
			}
		}
		c.log.Info().Msg("all services stopped")
		close(c.shutdown)
	})
}
