package rpc

import (
	"context"
	"sync"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

// interface guard ensures MockFetcher implements clerk.AccountFetcher
var _ clerk.AccountFetcher = &MockFetcher{}

// MockFetcher serves accounts from memory, for tests and offline use.
type MockFetcher struct {
	mu       sync.Mutex
	accounts []clerk.RawAccount
	err      error
	calls    int
	// Block, if set, is waited on before answering (or ctx is done).
	Block chan struct{}
}

func NewMockFetcher(accounts ...clerk.RawAccount) *MockFetcher {
	return &MockFetcher{accounts: accounts}
}

func (m *MockFetcher) SetAccounts(accounts ...clerk.RawAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = accounts
}

// SetError makes every fetch fail with err (nil to clear).
func (m *MockFetcher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockFetcher) ProgramAccounts(ctx context.Context, program clerk.Address) ([]clerk.RawAccount, error) {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]clerk.RawAccount, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

func (m *MockFetcher) AccountInfo(ctx context.Context, address clerk.Address) (clerk.RawAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return clerk.RawAccount{}, m.err
	}
	for _, a := range m.accounts {
		if a.Address == address {
			return a, nil
		}
	}
	return clerk.RawAccount{}, clerk.NewErr(clerk.NotFound, "account not found: %s", address)
}
