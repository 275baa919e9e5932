package clerk

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Dashboard views over a Snapshot. Everything here recomputes from the
// snapshot on each call; nothing is cached.

// Amount is an on-chain u64 amount as an exact decimal. Amounts above
// the int64 range are valid on-chain, so this goes through big.Int.
func Amount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// StatusHistogram counts invoices per status. Every status is present.
func StatusHistogram(invoices []Account[Invoice]) map[InvoiceStatus]int {
	h := make(map[InvoiceStatus]int, InvoiceStatusCount)
	for _, s := range InvoiceStatuses {
		h[s] = 0
	}
	for _, inv := range invoices {
		h[inv.Data.Status]++
	}
	return h
}

// TotalAmount sums invoice amounts exactly, in the smallest currency unit.
func TotalAmount(invoices []Account[Invoice]) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(Amount(inv.Data.Amount))
	}
	return total
}

// TotalByStatus sums invoice amounts per status. Every status is present.
func TotalByStatus(invoices []Account[Invoice]) map[InvoiceStatus]decimal.Decimal {
	t := make(map[InvoiceStatus]decimal.Decimal, InvoiceStatusCount)
	for _, s := range InvoiceStatuses {
		t[s] = decimal.Zero
	}
	for _, inv := range invoices {
		t[inv.Data.Status] = t[inv.Data.Status].Add(Amount(inv.Data.Amount))
	}
	return t
}

func AuditPending(invoices []Account[Invoice]) []Account[Invoice] {
	return FilterInvoices(invoices, StatusAuditPending)
}

// FilterInvoices keeps invoices in any of the given statuses, in scan order.
func FilterInvoices(invoices []Account[Invoice], statuses ...InvoiceStatus) []Account[Invoice] {
	out := []Account[Invoice]{}
	for _, inv := range invoices {
		for _, s := range statuses {
			if inv.Data.Status == s {
				out = append(out, inv)
				break
			}
		}
	}
	return out
}

// VendorFilter selects vendors. A zero field matches everything.
type VendorFilter struct {
	Org    Address
	Wallet Address
}

func FilterVendors(vendors []Account[Vendor], f VendorFilter) []Account[Vendor] {
	out := []Account[Vendor]{}
	for _, v := range vendors {
		if !f.Org.IsZero() && v.Data.Org != f.Org {
			continue
		}
		if !f.Wallet.IsZero() && v.Data.Wallet != f.Wallet {
			continue
		}
		out = append(out, v)
	}
	return out
}

// OrgsOf returns the organizations administered by authority.
func OrgsOf(orgs []Account[OrgConfig], authority Address) []Account[OrgConfig] {
	out := []Account[OrgConfig]{}
	for _, o := range orgs {
		if o.Data.Authority == authority {
			out = append(out, o)
		}
	}
	return out
}

// PendingRequests returns requester's extraction requests still awaiting
// the oracle.
func PendingRequests(requests []Account[InvoiceRequest], requester Address) []Account[InvoiceRequest] {
	out := []Account[InvoiceRequest]{}
	for _, r := range requests {
		if r.Data.Requester == requester && r.Data.Status == RequestPending {
			out = append(out, r)
		}
	}
	return out
}

// QueueFor returns the payment queue of an org (NotFound if it has none).
func QueueFor(queues []Account[PaymentQueue], org Address) (Account[PaymentQueue], error) {
	for _, q := range queues {
		if q.Data.Org == org {
			return q, nil
		}
	}
	return Account[PaymentQueue]{}, NewErr(NotFound, "no payment queue for org %s", org)
}

// ToTokenUnits converts an amount in the smallest unit to token units for
// display, ie: 125500000 with 6 decimals is 125.5.
func ToTokenUnits(amount decimal.Decimal, decimals int32) decimal.Decimal {
	return amount.Shift(-decimals)
}

type Summary struct {
	Org            Address                           `json:"org"`
	Orgs           int                               `json:"orgs"`
	Vendors        int                               `json:"vendors"`
	ActiveVendors  int                               `json:"active_vendors"`
	Invoices       int                               `json:"invoices"`
	ByStatus       map[InvoiceStatus]int             `json:"by_status"`
	TotalAmount    decimal.Decimal                   `json:"total_amount"`
	AmountByStatus map[InvoiceStatus]decimal.Decimal `json:"amount_by_status"`
	AuditPending   int                               `json:"audit_pending"`
	PendingPayouts int                               `json:"pending_payouts"`
	QueuedAmount   decimal.Decimal                   `json:"queued_amount"`
	ScanID         string                            `json:"scan_id"`
}

// Summarize builds dashboard totals. With a non-zero org, vendors,
// invoices and queue are limited to that org's; invoices belong to the org
// when their vendor does.
func Summarize(snap Snapshot, org Address) Summary {
	vendors := FilterVendors(snap.Vendors, VendorFilter{Org: org})
	invoices := snap.Invoices
	orgs := snap.Orgs
	if !org.IsZero() {
		own := make(map[Address]bool, len(vendors))
		for _, v := range vendors {
			own[v.Address] = true
		}
		invoices = []Account[Invoice]{}
		for _, inv := range snap.Invoices {
			if own[inv.Data.Vendor] {
				invoices = append(invoices, inv)
			}
		}
		orgs = []Account[OrgConfig]{}
		for _, o := range snap.Orgs {
			if o.Address == org {
				orgs = append(orgs, o)
			}
		}
	}

	s := Summary{
		Org:            org,
		Orgs:           len(orgs),
		Vendors:        len(vendors),
		Invoices:       len(invoices),
		ByStatus:       StatusHistogram(invoices),
		TotalAmount:    TotalAmount(invoices),
		AmountByStatus: TotalByStatus(invoices),
		QueuedAmount:   decimal.Zero,
		ScanID:         snap.ScanID,
	}
	for _, v := range vendors {
		if v.Data.IsActive {
			s.ActiveVendors++
		}
	}
	s.AuditPending = s.ByStatus[StatusAuditPending]
	for _, q := range snap.Queues {
		if !org.IsZero() && q.Data.Org != org {
			continue
		}
		s.PendingPayouts += len(q.Data.Entries)
		for _, e := range q.Data.Entries {
			s.QueuedAmount = s.QueuedAmount.Add(Amount(e.Amount))
		}
	}
	return s
}
