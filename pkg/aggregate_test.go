package clerk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func addr(b byte) Address {
	var a Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testSnapshot() Snapshot {
	vendorA, vendorB := addr(0xa1), addr(0xb1)
	return Snapshot{
		ScanID: "scan-1",
		Orgs: []Account[OrgConfig]{
			{Address: testOrg, Data: OrgConfig{Authority: testAuthority, PerInvoiceCap: 1_000_000_000, DailyCap: 10_000_000_000, AuditRateBps: 500}},
			{Address: addr(0x0f), Data: OrgConfig{Authority: addr(0x01)}},
		},
		Vendors: []Account[Vendor]{
			{Address: vendorA, Data: Vendor{Org: testOrg, Name: "Acme Corp", Wallet: addr(9), IsActive: true}},
			{Address: vendorB, Data: Vendor{Org: addr(0x0f), Name: "Globex", Wallet: addr(9), IsActive: false}},
		},
		Invoices: []Account[Invoice]{
			{Address: addr(0x11), Data: Invoice{Vendor: vendorA, Amount: 125_500_000, Status: StatusAuditPending}},
			{Address: addr(0x12), Data: Invoice{Vendor: vendorA, Amount: 1<<64 - 1, Status: StatusPaid}},
			{Address: addr(0x13), Data: Invoice{Vendor: vendorB, Amount: 10, Status: StatusAuditPending}},
		},
		Requests: []Account[InvoiceRequest]{
			{Address: addr(0x21), Data: InvoiceRequest{Requester: testAuthority, Status: RequestPending}},
			{Address: addr(0x22), Data: InvoiceRequest{Requester: testAuthority, Status: RequestProcessed}},
			{Address: addr(0x23), Data: InvoiceRequest{Requester: addr(0x01), Status: RequestPending}},
		},
		Queues: []Account[PaymentQueue]{
			{Address: addr(0x31), Data: PaymentQueue{Org: testOrg, Entries: []QueueEntry{{Invoice: addr(0x11), Amount: 500}, {Invoice: addr(0x14), Amount: 250}}}},
		},
	}
}

func TestStatusHistogram(t *testing.T) {
	h := StatusHistogram(testSnapshot().Invoices)
	if len(h) != InvoiceStatusCount {
		t.Errorf("StatusHistogram: expected every status, got %d", len(h))
	}
	if h[StatusAuditPending] != 2 || h[StatusPaid] != 1 || h[StatusRefunded] != 0 {
		t.Errorf("StatusHistogram: wrong counts: %v", h)
	}
	if len(StatusHistogram(nil)) != InvoiceStatusCount {
		t.Errorf("StatusHistogram: empty input should still list every status")
	}
}

func TestTotalAmountIsExact(t *testing.T) {
	got := TotalAmount(testSnapshot().Invoices)
	expect, _ := decimal.NewFromString("18446744073835051625") // 2^64-1 + 125500000 + 10
	if !got.Equal(expect) {
		t.Errorf("TotalAmount: expected %s, got %s", expect, got)
	}
	by := TotalByStatus(testSnapshot().Invoices)
	if !by[StatusAuditPending].Equal(decimal.NewFromInt(125_500_010)) {
		t.Errorf("TotalByStatus: wrong AuditPending total: %s", by[StatusAuditPending])
	}
	if !by[StatusValidated].Equal(decimal.Zero) {
		t.Errorf("TotalByStatus: unused status should be zero")
	}
}

func TestToTokenUnits(t *testing.T) {
	got := ToTokenUnits(Amount(125_500_000), 6)
	if got.String() != "125.5" {
		t.Errorf("ToTokenUnits: expected 125.5, got %s", got)
	}
}

func TestFilters(t *testing.T) {
	snap := testSnapshot()
	if n := len(AuditPending(snap.Invoices)); n != 2 {
		t.Errorf("AuditPending: expected 2, got %d", n)
	}
	if n := len(FilterVendors(snap.Vendors, VendorFilter{})); n != 2 {
		t.Errorf("FilterVendors: empty filter should match all, got %d", n)
	}
	if v := FilterVendors(snap.Vendors, VendorFilter{Org: testOrg}); len(v) != 1 || v[0].Data.Name != "Acme Corp" {
		t.Errorf("FilterVendors(org): wrong result: %v", v)
	}
	if n := len(FilterVendors(snap.Vendors, VendorFilter{Wallet: addr(9)})); n != 2 {
		t.Errorf("FilterVendors(wallet): expected 2, got %d", n)
	}
	if o := OrgsOf(snap.Orgs, testAuthority); len(o) != 1 || o[0].Address != testOrg {
		t.Errorf("OrgsOf: wrong result: %v", o)
	}
	if r := PendingRequests(snap.Requests, testAuthority); len(r) != 1 || r[0].Address != addr(0x21) {
		t.Errorf("PendingRequests: wrong result: %v", r)
	}
	if _, err := QueueFor(snap.Queues, addr(0x0f)); !IsNotFoundError(err) {
		t.Errorf("QueueFor: expected NotFound, got %v", err)
	}
	if q, err := QueueFor(snap.Queues, testOrg); err != nil || len(q.Data.Entries) != 2 {
		t.Errorf("QueueFor: %v %v", q, err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testSnapshot(), Address{})
	if s.Orgs != 2 || s.Vendors != 2 || s.Invoices != 3 || s.ActiveVendors != 1 {
		t.Errorf("Summarize(all): wrong counts: %+v", s)
	}
	if s.AuditPending != 2 || s.PendingPayouts != 2 || !s.QueuedAmount.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Summarize(all): wrong totals: %+v", s)
	}
	s = Summarize(testSnapshot(), testOrg)
	if s.Orgs != 1 || s.Vendors != 1 || s.Invoices != 2 || s.AuditPending != 1 {
		t.Errorf("Summarize(org): wrong counts: %+v", s)
	}
}
