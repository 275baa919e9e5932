package clerk

import (
	"fmt"

	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

// Address of an on-chain account (base58 in text form).
type Address = solana.PublicKey

func ParseAddress(s string) (Address, error) {
	return solana.ParsePublicKey(s)
}

// Kind names a decoded record schema.
type Kind string

const (
	KindOrgConfig      Kind = "OrgConfig"
	KindVendor         Kind = "VendorAccount"
	KindInvoice        Kind = "InvoiceAccount"
	KindInvoiceRequest Kind = "InvoiceRequest"
	KindPaymentQueue   Kind = "PaymentQueue"
)

var Kinds = []Kind{KindOrgConfig, KindVendor, KindInvoice, KindInvoiceRequest, KindPaymentQueue}

// OrgConfig is the per-organization settings account.
type OrgConfig struct {
	Authority      Address `json:"authority"`
	OracleSigner   Address `json:"oracle_signer"`
	TreasuryVault  Address `json:"treasury_vault"`
	Mint           Address `json:"mint"`
	PerInvoiceCap  uint64  `json:"per_invoice_cap"`
	DailyCap       uint64  `json:"daily_cap"`
	DailySpent     uint64  `json:"daily_spent"`
	AuditRateBps   uint16  `json:"audit_rate_bps"` // basis points, 0-10000
	Paused         bool    `json:"paused"`
	InvoiceCounter uint64  `json:"invoice_counter"`
	Version        uint8   `json:"version"`
	Bump           uint8   `json:"bump"`
}

// AuditRatePercent converts the basis-point audit rate to percent.
func (o OrgConfig) AuditRatePercent() float64 {
	return float64(o.AuditRateBps) / 100.0
}

type Vendor struct {
	Org         Address `json:"org"`
	Name        string  `json:"vendor_name"`
	Wallet      Address `json:"wallet"`
	TotalPaid   uint64  `json:"total_paid"`
	LastPayment int64   `json:"last_payment"` // unix seconds
	IsActive    bool    `json:"is_active"`
}

type Invoice struct {
	Requester  Address       `json:"requester"`
	Vendor     Address       `json:"vendor"`
	VendorName string        `json:"vendor_name"`
	Amount     uint64        `json:"amount"` // smallest currency unit
	DueDate    int64         `json:"due_date"`
	ContentRef string        `json:"content_ref"`
	Status     InvoiceStatus `json:"status"`
	CreatedAt  int64         `json:"created_at"`
	Nonce      uint64        `json:"nonce"`
}

type InvoiceRequest struct {
	Requester  Address       `json:"requester"`
	ContentRef string        `json:"content_ref"`
	Status     RequestStatus `json:"status"`
	CreatedAt  int64         `json:"created_at"`
	Amount     uint64        `json:"amount"`
	Nonce      uint64        `json:"nonce"`
}

type QueueEntry struct {
	Invoice Address `json:"invoice"`
	Vendor  Address `json:"vendor"`
	DueDate int64   `json:"due_date"`
	Amount  uint64  `json:"amount"`
}

type PaymentQueue struct {
	Org         Address      `json:"org"`
	Entries     []QueueEntry `json:"entries"`
	Count       uint64       `json:"count"`
	LastUpdated int64        `json:"last_updated"`
	Bump        uint8        `json:"bump"`
}

// InvoiceStatus is the on-chain invoice lifecycle:
// Validated -> AwaitingRandomness -> AuditPending -> ReadyToSettle -> Paid | Refunded,
// or Validated -> ReadyToSettle when no audit is sampled.
type InvoiceStatus uint8

const (
	StatusValidated InvoiceStatus = iota
	StatusAwaitingRandomness
	StatusAuditPending
	StatusReadyToSettle
	StatusPaid
	StatusRefunded
)

// InvoiceStatusNames is the ordinal table of the on-chain status enum.
// The codec decodes and walks invoices against it.
var InvoiceStatusNames = [...]string{"Validated", "AwaitingRandomness", "AuditPending", "ReadyToSettle", "Paid", "Refunded"}

// InvoiceStatuses lists every status in ordinal order.
var InvoiceStatuses = []InvoiceStatus{StatusValidated, StatusAwaitingRandomness, StatusAuditPending, StatusReadyToSettle, StatusPaid, StatusRefunded}

const InvoiceStatusCount = len(InvoiceStatusNames)

func ParseInvoiceStatus(name string) (InvoiceStatus, error) {
	for i, n := range InvoiceStatusNames {
		if n == name {
			return InvoiceStatus(i), nil
		}
	}
	return 0, NewErr(UnknownVariant, "unknown invoice status: %q", name)
}

func (s InvoiceStatus) String() string {
	if int(s) < len(InvoiceStatusNames) {
		return InvoiceStatusNames[s]
	}
	return fmt.Sprintf("InvoiceStatus(%d)", uint8(s))
}

func (s InvoiceStatus) MarshalText() ([]byte, error) {
	if int(s) >= InvoiceStatusCount {
		return nil, NewErr(UnknownVariant, "invoice status ordinal %d out of range", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *InvoiceStatus) UnmarshalText(text []byte) error {
	v, err := ParseInvoiceStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type RequestStatus uint8

const (
	RequestPending RequestStatus = iota
	RequestProcessed
	RequestClosed
)

var RequestStatusNames = [...]string{"Pending", "Processed", "Closed"}

const RequestStatusCount = len(RequestStatusNames)

func (s RequestStatus) String() string {
	if int(s) < len(RequestStatusNames) {
		return RequestStatusNames[s]
	}
	return fmt.Sprintf("RequestStatus(%d)", uint8(s))
}

func (s RequestStatus) MarshalText() ([]byte, error) {
	if int(s) >= RequestStatusCount {
		return nil, NewErr(UnknownVariant, "request status ordinal %d out of range", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *RequestStatus) UnmarshalText(text []byte) error {
	for i, n := range RequestStatusNames {
		if n == string(text) {
			*s = RequestStatus(i)
			return nil
		}
	}
	return NewErr(UnknownVariant, "unknown request status: %q", string(text))
}
