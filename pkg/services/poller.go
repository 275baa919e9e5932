package services

import (
	"context"
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/chaintracker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RETRY_DELAY     = 5 * time.Second  // for Database errors.
	CONFLICT_DELAY  = 1 * time.Second  // for Database conflicts (concurrent transactions)
	DEFAULT_PERIOD  = 30 * time.Second // time between scans without a change signal
	DEFAULT_TIMEOUT = 20 * time.Second // time allowed for one scan
)

type ProgramScanner interface {
	Scan(ctx context.Context, program clerk.Address) (clerk.Snapshot, error)
}

// Poller scans the program whenever the watcher reports a change, a rescan
// is requested, or the polling period elapses. Each complete scan replaces
// the stored snapshot and the differences are sent to the bus.
type Poller struct {
	scanner ProgramScanner
	store   clerk.Store
	bus     clerk.MessageBus
	program clerk.Address
	period  time.Duration
	timeout time.Duration
	changes chan chaintracker.Change
	rescan  chan struct{}
	ctx     context.Context // cancelled when the service stops
	prev    clerk.Snapshot
	log     zerolog.Logger
}

func NewPoller(scanner ProgramScanner, store clerk.Store, bus clerk.MessageBus, program clerk.Address, period, timeout time.Duration) *Poller {
	if period <= 0 {
		period = DEFAULT_PERIOD
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &Poller{
		scanner: scanner,
		store:   store,
		bus:     bus,
		program: program,
		period:  period,
		timeout: timeout,
		changes: make(chan chaintracker.Change, 1),
		rescan:  make(chan struct{}, 1),
		log:     log.With().Str("component", "Poller").Logger(),
	}
}

// Changes is the channel to subscribe to a ProgramWatcher.
func (p *Poller) Changes() chan<- chaintracker.Change {
	return p.changes
}

// Rescan asks for a scan as soon as possible. Requests made while one is
// already pending are merged.
func (p *Poller) Rescan() {
	select {
	case p.rescan <- struct{}{}:
	default:
	}
}

// Implements conductor.Service
func (p *Poller) Run(started, stopped chan bool, stop chan context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.ctx = ctx
	// a stop also abandons the scan in progress
	go func() {
		<-stop
		cancel()
	}()
	go func() {
		// Recover from panic used to stop the service.
		defer func() {
			if r := recover(); r != nil {
				p.log.Info().Interface("panic", r).Msg("stopping")
			}
			close(stopped)
		}()
		started <- true
		p.prev = p.loadPrevious()
		// first scan straight away.
		p.runScan("startup")
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-p.changes:
				if c.Fallback {
					p.runScan("fallback")
				} else {
					p.runScan("notification")
				}
			case <-p.rescan:
				p.runScan("rescan")
			case <-time.After(p.period):
				p.runScan("period")
			}
		}
	}()
	return nil
}

// loadPrevious fetches the stored snapshot to diff the first scan against.
func (p *Poller) loadPrevious() clerk.Snapshot {
	for {
		snap, err := p.store.LatestSnapshot()
		if clerk.IsNotFoundError(err) {
			return clerk.Snapshot{}
		}
		if err != nil {
			p.log.Error().Err(err).Msg("LatestSnapshot")
			p.sleepForRetry(err, 0)
			continue // retry.
		}
		return snap
	}
}

// runScan performs one scan. A failed scan leaves the stored snapshot alone.
func (p *Poller) runScan(reason string) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	snap, err := p.scanner.Scan(ctx, p.program)
	scanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if p.ctx.Err() != nil {
			panic("shutdown")
		}
		scansTotal.WithLabelValues("failed").Inc()
		p.log.Warn().Err(err).Str("reason", reason).Msg("scan failed")
		p.send(clerk.SCAN_FAILED, clerk.ScanFailedEvent{Program: p.program, Code: clerk.CodeOf(err), Reason: err.Error()})
		// back off before the next wake-up can scan again.
		p.sleepForRetry(err, 0)
		return
	}
	scansTotal.WithLabelValues("ok").Inc()
	p.recordMetrics(snap)

	p.saveSnapshot(snap)
	for _, e := range Diff(p.prev, snap) {
		p.send(e.Type, e.Msg, e.ID)
	}
	p.prev = snap
	p.send(clerk.SCAN_COMPLETED, clerk.ScanRecord{
		ScanID:    snap.ScanID,
		Program:   snap.Program,
		ScannedAt: snap.ScannedAt,
		Fetched:   snap.Fetched,
		Decoded:   snap.Decoded(),
		Dropped:   len(snap.Dropped),
	}, snap.ScanID)
	p.log.Info().Str("reason", reason).Str("scan", snap.ScanID).Int("decoded", snap.Decoded()).Msg("snapshot replaced")
}

func (p *Poller) saveSnapshot(snap clerk.Snapshot) {
	for {
		err := p.store.SaveSnapshot(snap)
		if err == nil {
			return
		}
		p.log.Error().Err(err).Str("scan", snap.ScanID).Msg("SaveSnapshot")
		p.sleepForRetry(err, 0)
	}
}

func (p *Poller) recordMetrics(snap clerk.Snapshot) {
	counts := map[clerk.Kind]int{
		clerk.KindOrgConfig:      len(snap.Orgs),
		clerk.KindVendor:         len(snap.Vendors),
		clerk.KindInvoice:        len(snap.Invoices),
		clerk.KindInvoiceRequest: len(snap.Requests),
		clerk.KindPaymentQueue:   len(snap.Queues),
	}
	for kind, n := range counts {
		accountsDecoded.WithLabelValues(string(kind)).Add(float64(n))
		lastScanAccounts.WithLabelValues(string(kind)).Set(float64(n))
	}
	for _, d := range snap.Dropped {
		accountsDropped.WithLabelValues(string(d.Code)).Inc()
	}
}

func (p *Poller) send(t clerk.EventType, msg any, id ...string) {
	if err := p.bus.Send(t, msg, id...); err != nil {
		p.log.Error().Err(err).Str("event", t.Type()).Msg("bus error")
	}
}

func (p *Poller) sleepForRetry(err error, delay time.Duration) {
	if delay == 0 {
		delay = RETRY_DELAY
		if clerk.IsError(err, clerk.DBConflict) {
			delay = CONFLICT_DELAY
		}
	}
	select {
	case <-p.ctx.Done():
		panic("shutdown")
	case <-time.After(delay):
		return
	}
}
