package store

import (
	"sort"
	"sync"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

// interface guard ensures Mock implements clerk.Store
var _ clerk.Store = &Mock{}

// Mock keeps snapshots in memory.
type Mock struct {
	mu     sync.Mutex
	latest *clerk.Snapshot
	scans  []clerk.ScanRecord
}

// NewMock returns a clerk.Store implementor that keeps snapshots in memory
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) SaveSnapshot(snap clerk.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = &snap
	m.scans = append(m.scans, clerk.ScanRecord{
		ScanID:    snap.ScanID,
		Program:   snap.Program,
		ScannedAt: snap.ScannedAt,
		Fetched:   snap.Fetched,
		Decoded:   snap.Decoded(),
		Dropped:   len(snap.Dropped),
	})
	return nil
}

func (m *Mock) LatestSnapshot() (clerk.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return clerk.Snapshot{}, clerk.NewErr(clerk.NotFound, "no snapshot stored")
	}
	return *m.latest, nil
}

func (m *Mock) ListScans(limit int) ([]clerk.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]clerk.ScanRecord(nil), m.scans...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Mock) Close() {}
