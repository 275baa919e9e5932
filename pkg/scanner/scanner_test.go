package scanner

import (
	"context"
	"errors"
	"testing"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/codec"
	"github.com/ledgerclerk/ledgerclerk/pkg/rpc"
	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
	"github.com/rs/zerolog"
)

var (
	program    = solana.MustParsePublicKey("DVxvMr8TyPWpnT4tQc56SCLXAiNr2VC4w22R6i7B1V9U")
	authority  = solana.MustParsePublicKey("Af2Y56WUFQuTTTYHMCjMozYsDxvTvSM6YQnyv8E6EK3v")
	orgPDA     = solana.MustParsePublicKey("39u8T3b2x1862mfbuwLMmPphXgiecvY4T8kL6sD5PBCW")
	vendorPDA  = solana.MustParsePublicKey("7wX28QQcFuhhbP8Ro2Fg4yhyxFnBBopSTiUe42dau3YE")
	invoicePDA = solana.MustParsePublicKey("E3xzAkTjRTRq5YrmryqomfzNuvwXotewuWLisfk5tzMF")
)

func key(b byte) clerk.Address {
	var a clerk.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func invoiceAccount() clerk.RawAccount {
	inv := clerk.Invoice{
		Requester: authority, Vendor: vendorPDA, VendorName: "Acme Corp",
		Amount: 125_500_000, ContentRef: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Status: clerk.StatusAuditPending, Nonce: 7,
	}
	return clerk.RawAccount{Address: invoicePDA, Owner: program, Data: codec.EncodeInvoice(inv)}
}

func quiet() Option {
	return WithLogger(zerolog.Nop())
}

func TestScanResilience(t *testing.T) {
	good := invoiceAccount()
	truncated := clerk.RawAccount{Address: key(0x22), Data: good.Data[:len(good.Data)-1]}
	foreign := clerk.RawAccount{Address: key(0x33), Data: append([]byte{1, 2, 3, 4, 5, 6, 7, 8}, good.Data[8:]...)}
	s := NewScanner(rpc.NewMockFetcher(good, truncated, foreign), quiet())

	snap, err := s.Scan(context.Background(), program)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Invoices) != 1 || snap.Invoices[0].Address != invoicePDA {
		t.Fatalf("Scan: expected the one good invoice, got %+v", snap.Invoices)
	}
	if len(snap.Dropped) != 2 {
		t.Fatalf("Scan: expected 2 diagnostics, got %+v", snap.Dropped)
	}
	if d := snap.Dropped[0]; d.Address != key(0x22) || d.Code != clerk.TruncatedBuffer {
		t.Errorf("Scan: wrong first diagnostic: %+v", d)
	}
	if d := snap.Dropped[1]; d.Address != key(0x33) || d.Code != clerk.UnknownTag {
		t.Errorf("Scan: wrong second diagnostic: %+v", d)
	}
	if snap.Fetched != 3 || snap.Decoded() != 1 || snap.ScanID == "" || snap.Program != program {
		t.Errorf("Scan: wrong snapshot header: %+v", snap)
	}
}

func TestScanKeepsOrderAcrossWorkers(t *testing.T) {
	var raws []clerk.RawAccount
	for i := 0; i < 50; i++ {
		v := clerk.Vendor{Org: orgPDA, Name: "Vendor", Wallet: key(byte(i)), IsActive: true}
		raws = append(raws, clerk.RawAccount{Address: key(byte(i)), Data: codec.EncodeVendor(v)})
	}
	s := NewScanner(rpc.NewMockFetcher(raws...), WithWorkers(4), quiet())
	snap, err := s.Scan(context.Background(), program)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Vendors) != 50 {
		t.Fatalf("Scan: expected 50 vendors, got %d", len(snap.Vendors))
	}
	for i, v := range snap.Vendors {
		if v.Address != key(byte(i)) || v.Data.Wallet != key(byte(i)) {
			t.Fatalf("Scan: vendor %d out of order: %s", i, v.Address)
		}
	}
}

func TestScanFetchFailed(t *testing.T) {
	m := rpc.NewMockFetcher(invoiceAccount())
	m.SetError(errors.New("connection refused"))
	snap, err := NewScanner(m, quiet()).Scan(context.Background(), program)
	if !clerk.IsFetchFailed(err) {
		t.Errorf("Scan: expected FetchFailed, got %v", err)
	}
	if snap.ScanID != "" || snap.Decoded() != 0 {
		t.Errorf("Scan: returned data with a failed fetch: %+v", snap)
	}
}

func TestScanCancelled(t *testing.T) {
	m := rpc.NewMockFetcher(invoiceAccount())
	m.Block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := NewScanner(m, quiet()).Scan(ctx, program)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Scan: expected context.Canceled, got %v", err)
	}
	if snap.ScanID != "" || snap.Decoded() != 0 {
		t.Errorf("Scan: returned a partial snapshot after cancel")
	}
}

func TestScanVerifyAddresses(t *testing.T) {
	good := invoiceAccount()
	// same record bytes under an address it cannot derive to
	moved := clerk.RawAccount{Address: key(0x44), Data: good.Data}
	org := clerk.RawAccount{Address: orgPDA, Data: codec.EncodeOrgConfig(clerk.OrgConfig{Authority: authority, PerInvoiceCap: 1, DailyCap: 1})}

	snap, err := NewScanner(rpc.NewMockFetcher(good, moved, org), WithVerify(true), quiet()).Scan(context.Background(), program)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Invoices) != 1 || len(snap.Orgs) != 1 {
		t.Errorf("Scan: expected 1 invoice and 1 org, got %d %d", len(snap.Invoices), len(snap.Orgs))
	}
	if len(snap.Dropped) != 1 || snap.Dropped[0].Code != clerk.AddressMismatch || snap.Dropped[0].Address != key(0x44) {
		t.Errorf("Scan: expected one AddressMismatch, got %+v", snap.Dropped)
	}

	// without verification the moved record is kept
	snap, _ = NewScanner(rpc.NewMockFetcher(good, moved), quiet()).Scan(context.Background(), program)
	if len(snap.Invoices) != 2 {
		t.Errorf("Scan: expected 2 invoices without verification, got %d", len(snap.Invoices))
	}
}

func TestScanEmpty(t *testing.T) {
	snap, err := NewScanner(rpc.NewMockFetcher(), quiet()).Scan(context.Background(), program)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.Invoices == nil || snap.Dropped == nil {
		t.Errorf("Scan: empty snapshot should carry empty lists, not nil")
	}
}
