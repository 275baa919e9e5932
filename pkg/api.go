package clerk

import (
	"net/url"

	"github.com/shopspring/decimal"
)

// API serves the dashboard views from the latest stored snapshot, and
// derivations for the configured program.
type API struct {
	Store    Store
	Scanner  Rescanner
	Program  Address
	Decimals int32
	Symbol   string
}

func NewAPI(store Store, scanner Rescanner, program Address, config Config) API {
	return API{store, scanner, program, config.Token.Decimals, config.Token.Symbol}
}

func (a API) snapshot() (Snapshot, error) {
	snap, err := a.Store.LatestSnapshot()
	if err != nil {
		if IsNotFoundError(err) {
			return Snapshot{}, NewErr(NotAvailable, "no completed scan yet")
		}
		return Snapshot{}, err
	}
	return snap, nil
}

type SummaryResponse struct {
	Summary
	Symbol       string          `json:"symbol"`
	TotalTokens  decimal.Decimal `json:"total_tokens"`
	QueuedTokens decimal.Decimal `json:"queued_tokens"`
}

func (a API) Summary(org Address) (SummaryResponse, error) {
	snap, err := a.snapshot()
	if err != nil {
		return SummaryResponse{}, err
	}
	s := Summarize(snap, org)
	return SummaryResponse{
		Summary:      s,
		Symbol:       a.Symbol,
		TotalTokens:  ToTokenUnits(s.TotalAmount, a.Decimals),
		QueuedTokens: ToTokenUnits(s.QueuedAmount, a.Decimals),
	}, nil
}

func (a API) OrgsOf(authority Address) ([]Account[OrgConfig], error) {
	snap, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	return OrgsOf(snap.Orgs, authority), nil
}

func (a API) Vendors(f VendorFilter) ([]Account[Vendor], error) {
	snap, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	return FilterVendors(snap.Vendors, f), nil
}

// Invoices lists invoices in the given statuses, or all with none given.
func (a API) Invoices(statuses ...InvoiceStatus) ([]Account[Invoice], error) {
	snap, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		if snap.Invoices == nil {
			return []Account[Invoice]{}, nil // encoded as '[]' in JSON
		}
		return snap.Invoices, nil
	}
	return FilterInvoices(snap.Invoices, statuses...), nil
}

func (a API) AuditPending() ([]Account[Invoice], error) {
	return a.Invoices(StatusAuditPending)
}

func (a API) GetInvoice(addr Address) (Account[Invoice], error) {
	snap, err := a.snapshot()
	if err != nil {
		return Account[Invoice]{}, err
	}
	for _, inv := range snap.Invoices {
		if inv.Address == addr {
			return inv, nil
		}
	}
	return Account[Invoice]{}, NewErr(NotFound, "invoice not found: %s", addr)
}

// PaymentURI builds a Solana Pay transfer link for an invoice: the vendor
// wallet receives the amount in token units, in the org's mint when the org
// is known. The invoice address is the reference.
func (a API) PaymentURI(addr Address) (string, error) {
	snap, err := a.snapshot()
	if err != nil {
		return "", err
	}
	var inv *Account[Invoice]
	for i := range snap.Invoices {
		if snap.Invoices[i].Address == addr {
			inv = &snap.Invoices[i]
			break
		}
	}
	if inv == nil {
		return "", NewErr(NotFound, "invoice not found: %s", addr)
	}
	var vendor *Account[Vendor]
	for i := range snap.Vendors {
		if snap.Vendors[i].Address == inv.Data.Vendor {
			vendor = &snap.Vendors[i]
			break
		}
	}
	if vendor == nil {
		return "", NewErr(NotFound, "vendor %s of invoice %s not found", inv.Data.Vendor, addr)
	}
	q := url.Values{}
	q.Set("amount", ToTokenUnits(Amount(inv.Data.Amount), a.Decimals).String())
	for _, o := range snap.Orgs {
		if o.Address == vendor.Data.Org && !o.Data.Mint.IsZero() {
			q.Set("spl-token", o.Data.Mint.String())
		}
	}
	q.Set("reference", addr.String())
	q.Set("label", inv.Data.VendorName)
	return "solana:" + vendor.Data.Wallet.String() + "?" + q.Encode(), nil
}

func (a API) PendingRequests(requester Address) ([]Account[InvoiceRequest], error) {
	snap, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	return PendingRequests(snap.Requests, requester), nil
}

func (a API) Queue(org Address) (Account[PaymentQueue], error) {
	snap, err := a.snapshot()
	if err != nil {
		return Account[PaymentQueue]{}, err
	}
	return QueueFor(snap.Queues, org)
}

func (a API) ListScans(limit int) ([]ScanRecord, error) {
	scans, err := a.Store.ListScans(limit)
	if err != nil {
		return nil, err
	}
	if scans == nil {
		scans = []ScanRecord{}
	}
	return scans, nil
}

func (a API) Rescan() {
	a.Scanner.Rescan()
}

// DeriveParams carries seed material for DeriveKind; only the fields the
// kind uses are read.
type DeriveParams struct {
	Authority  Address `json:"authority"`
	Org        Address `json:"org"`
	Invoice    Address `json:"invoice"`
	VendorName string  `json:"vendor_name"`
	ContentRef string  `json:"content_ref"`
	Nonce      *uint64 `json:"nonce"`
}

// Derivation kinds accepted by DeriveKind.
var DeriveKinds = []string{"org_config", "vendor", "invoice", "legacy_invoice", "request", "escrow_auth", "payment_queue"}

func (a API) Derive(kind string, p DeriveParams) (Derivation, error) {
	return DeriveKind(a.Program, kind, p)
}

// DeriveKind derives the address of one account kind from its seed params.
func DeriveKind(program Address, kind string, p DeriveParams) (Derivation, error) {
	need := func(name string, v Address) error {
		if v.IsZero() {
			return NewErr(BadRequest, "derive %s: missing %s", kind, name)
		}
		return nil
	}
	switch kind {
	case "org_config":
		if err := need("authority", p.Authority); err != nil {
			return Derivation{}, err
		}
		return OrgConfigAddress(program, p.Authority)
	case "vendor":
		if err := need("org", p.Org); err != nil {
			return Derivation{}, err
		}
		if p.VendorName == "" {
			return Derivation{}, NewErr(BadRequest, "derive vendor: missing vendor_name")
		}
		return VendorAddress(program, p.Org, p.VendorName)
	case "invoice":
		if err := need("authority", p.Authority); err != nil {
			return Derivation{}, err
		}
		if p.Nonce != nil {
			return InvoiceAddressWithNonce(program, p.Authority, *p.Nonce)
		}
		return InvoiceAddress(program, p.Authority)
	case "legacy_invoice":
		if err := need("authority", p.Authority); err != nil {
			return Derivation{}, err
		}
		return LegacyInvoiceAddress(program, p.Authority, p.ContentRef)
	case "request":
		if err := need("authority", p.Authority); err != nil {
			return Derivation{}, err
		}
		if p.Nonce == nil {
			return Derivation{}, NewErr(BadRequest, "derive request: missing nonce")
		}
		return RequestAddress(program, p.Authority, *p.Nonce)
	case "escrow_auth":
		if err := need("invoice", p.Invoice); err != nil {
			return Derivation{}, err
		}
		return EscrowAuthorityAddress(program, p.Invoice)
	case "payment_queue":
		if err := need("org", p.Org); err != nil {
			return Derivation{}, err
		}
		return PaymentQueueAddress(program, p.Org)
	}
	return Derivation{}, NewErr(BadRequest, "unknown derivation kind: %q", kind)
}
