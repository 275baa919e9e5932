/*
Package scanner fetches every account owned by the invoice-claim program
and decodes it into a clerk.Snapshot.

Records that cannot be decoded (foreign tag, truncated, bad encoding, or
an address that does not match its seeds) are dropped with a Diagnostic;
the rest of the scan carries on. Only a failed fetch or a cancelled
context fails the scan as a whole.
*/
package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/codec"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 8

type Scanner struct {
	fetcher  clerk.AccountFetcher
	registry *codec.Registry
	workers  int
	verify   bool
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(s *Scanner)

func WithRegistry(r *codec.Registry) Option {
	return func(s *Scanner) { s.registry = r }
}

// WithWorkers bounds the number of accounts decoded in parallel.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithVerify re-derives each record's address from its fields and drops
// records that do not match.
func WithVerify(verify bool) Option {
	return func(s *Scanner) { s.verify = verify }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

func NewScanner(fetcher clerk.AccountFetcher, opts ...Option) *Scanner {
	s := &Scanner{
		fetcher:  fetcher,
		registry: codec.Default,
		workers:  DefaultWorkers,
		log:      log.With().Str("component", "Scanner").Logger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// decoded is the outcome for one fetched account.
type decoded struct {
	kind  clerk.Kind
	value any
	err   error
}

// Scan fetches and decodes every account owned by program. It returns a
// FetchFailed error if the fetch fails, and ctx.Err() if ctx is cancelled
// before the scan completes; in both cases no snapshot is returned.
func (s *Scanner) Scan(ctx context.Context, program clerk.Address) (clerk.Snapshot, error) {
	started := s.now()
	raws, err := s.fetcher.ProgramAccounts(ctx, program)
	if err != nil {
		if ctx.Err() != nil {
			return clerk.Snapshot{}, ctx.Err()
		}
		return clerk.Snapshot{}, clerk.NewErr(clerk.FetchFailed, "fetch program accounts for %s: %v", program, err)
	}

	results := make([]decoded, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range raws {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.decode(program, raws[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return clerk.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return clerk.Snapshot{}, err
	}

	snap := partition(raws, results)
	snap.ScanID = uuid.NewString()
	snap.Program = program
	snap.ScannedAt = started.UTC()
	snap.Fetched = len(raws)

	for _, d := range snap.Dropped {
		s.log.Warn().Str("account", d.Address.String()).Str("code", string(d.Code)).Msg(d.Reason)
	}
	s.log.Info().Str("scan", snap.ScanID).Int("fetched", snap.Fetched).Int("decoded", snap.Decoded()).
		Int("dropped", len(snap.Dropped)).Dur("took", s.now().Sub(started)).Msg("scan complete")
	return snap, nil
}

func (s *Scanner) decode(program clerk.Address, raw clerk.RawAccount) decoded {
	kind, value, err := s.registry.Decode(raw.Data)
	if err != nil {
		return decoded{err: clerk.WithAccount(err, raw.Address)}
	}
	if s.verify {
		if err := clerk.VerifyAddress(program, raw.Address, value); err != nil {
			return decoded{err: clerk.WithAccount(err, raw.Address)}
		}
	}
	return decoded{kind: kind, value: value}
}

// partition sorts decoded records into the snapshot by kind, keeping
// fetch order within each kind.
func partition(raws []clerk.RawAccount, results []decoded) clerk.Snapshot {
	snap := clerk.Snapshot{
		Orgs:     []clerk.Account[clerk.OrgConfig]{},
		Vendors:  []clerk.Account[clerk.Vendor]{},
		Invoices: []clerk.Account[clerk.Invoice]{},
		Requests: []clerk.Account[clerk.InvoiceRequest]{},
		Queues:   []clerk.Account[clerk.PaymentQueue]{},
		Dropped:  []clerk.Diagnostic{},
	}
	for i, r := range results {
		addr := raws[i].Address
		if r.err != nil {
			snap.Dropped = append(snap.Dropped, clerk.Diagnostic{Address: addr, Code: clerk.CodeOf(r.err), Reason: r.err.Error()})
			continue
		}
		switch v := r.value.(type) {
		case clerk.OrgConfig:
			snap.Orgs = append(snap.Orgs, clerk.Account[clerk.OrgConfig]{Address: addr, Data: v})
		case clerk.Vendor:
			snap.Vendors = append(snap.Vendors, clerk.Account[clerk.Vendor]{Address: addr, Data: v})
		case clerk.Invoice:
			snap.Invoices = append(snap.Invoices, clerk.Account[clerk.Invoice]{Address: addr, Data: v})
		case clerk.InvoiceRequest:
			snap.Requests = append(snap.Requests, clerk.Account[clerk.InvoiceRequest]{Address: addr, Data: v})
		case clerk.PaymentQueue:
			snap.Queues = append(snap.Queues, clerk.Account[clerk.PaymentQueue]{Address: addr, Data: v})
		default:
			snap.Dropped = append(snap.Dropped, clerk.Diagnostic{Address: addr, Code: clerk.UnknownError, Reason: "no record type for kind " + string(r.kind)})
		}
	}
	return snap
}
