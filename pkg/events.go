package clerk

// ledgerclerk event types

// bus.Send(INV_STATUS_CHANGED, change)
// bus.Send(SCAN_COMPLETED, record)

// Interface for any event
type EventType interface {
	Type() string
}

// slice of all msg types for config funcs lookup
var EVENT_TYPES []EventType = []EventType{EVENT_ALL("ALL"),
	EVENT_SYS("SYS"),
	EVENT_SCAN("SCAN"),
	EVENT_ORG("ORG"),
	EVENT_VEN("VEN"),
	EVENT_INV("INV"),
	EVENT_REQ("REQ")}

// EventTypeByName maps a config name ("INV", "ALL" ...) to its category.
func EventTypeByName(name string) (EventType, bool) {
	for _, t := range EVENT_TYPES {
		if t.Type() == name {
			return t, true
		}
	}
	return nil, false
}

// Special category, do not use directly, represents *
type EVENT_ALL string

func (e EVENT_ALL) Type() string {
	return "ALL"
}

// System Events
type EVENT_SYS string

func (e EVENT_SYS) Type() string {
	return "SYS"
}

const (
	SYS_STARTUP EVENT_SYS = "STARTUP"
	SYS_ERR     EVENT_SYS = "ERR"
	SYS_MSG     EVENT_SYS = "MSG"
)

// Scan Events
type EVENT_SCAN string

func (e EVENT_SCAN) Type() string {
	return "SCAN"
}

const (
	SCAN_COMPLETED EVENT_SCAN = "COMPLETED"
	SCAN_FAILED    EVENT_SCAN = "FAILED"
	SCAN_DROPPED   EVENT_SCAN = "DROPPED"
)

// Organization Events
type EVENT_ORG string

func (e EVENT_ORG) Type() string {
	return "ORG"
}

const (
	ORG_CREATED EVENT_ORG = "CREATED"
	ORG_UPDATED EVENT_ORG = "UPDATED"
)

// Vendor Events
type EVENT_VEN string

func (e EVENT_VEN) Type() string {
	return "VEN"
}

const (
	VEN_REGISTERED EVENT_VEN = "REGISTERED"
	VEN_UPDATED    EVENT_VEN = "UPDATED"
)

// Invoice Events
type EVENT_INV string

func (e EVENT_INV) Type() string {
	return "INV"
}

const (
	INV_DISCOVERED     EVENT_INV = "DISCOVERED"
	INV_STATUS_CHANGED EVENT_INV = "STATUS_CHANGED"
	INV_AUDIT_PENDING  EVENT_INV = "AUDIT_PENDING"
	INV_REMOVED        EVENT_INV = "REMOVED"
)

// Extraction Request Events
type EVENT_REQ string

func (e EVENT_REQ) Type() string {
	return "REQ"
}

const (
	REQ_CREATED        EVENT_REQ = "CREATED"
	REQ_STATUS_CHANGED EVENT_REQ = "STATUS_CHANGED"
)

// Event payloads

type InvoiceEvent struct {
	Invoice    Address        `json:"invoice"`
	Status     InvoiceStatus  `json:"status"`
	PrevStatus *InvoiceStatus `json:"prev_status,omitempty"`
	Vendor     Address        `json:"vendor"`
	VendorName string         `json:"vendor_name"`
	Amount     uint64         `json:"amount"`
}

type RequestEvent struct {
	Request    Address        `json:"request"`
	Requester  Address        `json:"requester"`
	Status     RequestStatus  `json:"status"`
	PrevStatus *RequestStatus `json:"prev_status,omitempty"`
	ContentRef string         `json:"content_ref"`
}

type VendorEvent struct {
	Vendor   Address `json:"vendor"`
	Org      Address `json:"org"`
	Name     string  `json:"vendor_name"`
	Wallet   Address `json:"wallet"`
	IsActive bool    `json:"is_active"`
}

type OrgEvent struct {
	Org    Address   `json:"org"`
	Config OrgConfig `json:"config"`
}

type ScanFailedEvent struct {
	Program Address   `json:"program"`
	Code    ErrorCode `json:"code"`
	Reason  string    `json:"reason"`
}
