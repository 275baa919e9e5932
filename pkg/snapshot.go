package clerk

import (
	"context"
	"time"
)

// RawAccount is one account as returned by the fetch collaborator.
type RawAccount struct {
	Address  Address
	Owner    Address
	Lamports uint64
	Data     []byte
}

// AccountFetcher is the I/O boundary of a scan: it returns every account
// owned by the program. Implementations own any retry policy.
type AccountFetcher interface {
	ProgramAccounts(ctx context.Context, program Address) ([]RawAccount, error)
}

// Account pairs a decoded record with the address it was fetched from.
type Account[T any] struct {
	Address Address `json:"address"`
	Data    T       `json:"data"`
}

// Diagnostic explains why an account was dropped from a scan.
type Diagnostic struct {
	Address Address   `json:"address"`
	Code    ErrorCode `json:"code"`
	Reason  string    `json:"reason"`
}

// Snapshot is the decoded result of one complete scan. Snapshots are never
// merged: each scan replaces the previous one.
type Snapshot struct {
	ScanID    string                    `json:"scan_id"`
	Program   Address                   `json:"program"`
	ScannedAt time.Time                 `json:"scanned_at"`
	Fetched   int                       `json:"fetched"`
	Orgs      []Account[OrgConfig]      `json:"orgs"`
	Vendors   []Account[Vendor]         `json:"vendors"`
	Invoices  []Account[Invoice]        `json:"invoices"`
	Requests  []Account[InvoiceRequest] `json:"requests"`
	Queues    []Account[PaymentQueue]   `json:"queues"`
	Dropped   []Diagnostic              `json:"dropped"`
}

// Decoded counts the records that survived decoding.
func (s Snapshot) Decoded() int {
	return len(s.Orgs) + len(s.Vendors) + len(s.Invoices) + len(s.Requests) + len(s.Queues)
}

// ScanRecord is the stored summary of a completed scan.
type ScanRecord struct {
	ScanID    string    `json:"scan_id"`
	Program   Address   `json:"program"`
	ScannedAt time.Time `json:"scanned_at"`
	Fetched   int       `json:"fetched"`
	Decoded   int       `json:"decoded"`
	Dropped   int       `json:"dropped"`
}

// Rescanner requests an out-of-band scan.
type Rescanner interface {
	Rescan()
}
