package codec

import (
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

var (
	OrgConfigTag      = AccountTag("OrgConfig")
	VendorTag         = AccountTag("VendorAccount")
	InvoiceTag        = AccountTag("InvoiceAccount")
	InvoiceRequestTag = AccountTag("InvoiceRequest")
	PaymentQueueTag   = AccountTag("PaymentQueue")
)

var orgConfigFields = []Field{
	{Name: "authority", Type: TypeAddress},
	{Name: "oracle_signer", Type: TypeAddress},
	{Name: "treasury_vault", Type: TypeAddress},
	{Name: "mint", Type: TypeAddress},
	{Name: "per_invoice_cap", Type: TypeU64},
	{Name: "daily_cap", Type: TypeU64},
	{Name: "daily_spent", Type: TypeU64},
	{Name: "audit_rate_bps", Type: TypeU16},
	{Name: "paused", Type: TypeBool},
	{Name: "invoice_counter", Type: TypeU64},
	{Name: "version", Type: TypeU8},
	{Name: "bump", Type: TypeU8},
}

var vendorFields = []Field{
	{Name: "org", Type: TypeAddress},
	{Name: "vendor_name", Type: TypeString},
	{Name: "wallet", Type: TypeAddress},
	{Name: "total_paid", Type: TypeU64},
	{Name: "last_payment", Type: TypeI64},
	{Name: "is_active", Type: TypeBool},
}

var invoiceFields = []Field{
	{Name: "requester", Type: TypeAddress},
	{Name: "vendor", Type: TypeAddress},
	{Name: "vendor_name", Type: TypeString},
	{Name: "amount", Type: TypeU64},
	{Name: "due_date", Type: TypeI64},
	{Name: "content_ref", Type: TypeString},
	{Name: "status", Type: TypeEnum, Variants: clerk.InvoiceStatusNames[:]},
	{Name: "created_at", Type: TypeI64},
	{Name: "nonce", Type: TypeU64},
}

var invoiceRequestFields = []Field{
	{Name: "requester", Type: TypeAddress},
	{Name: "content_ref", Type: TypeString},
	{Name: "status", Type: TypeEnum, Variants: clerk.RequestStatusNames[:]},
	{Name: "created_at", Type: TypeI64},
	{Name: "amount", Type: TypeU64},
	{Name: "nonce", Type: TypeU64},
}

var queueEntryFields = []Field{
	{Name: "invoice", Type: TypeAddress},
	{Name: "vendor", Type: TypeAddress},
	{Name: "due_date", Type: TypeI64},
	{Name: "amount", Type: TypeU64},
}

var paymentQueueFields = []Field{
	{Name: "org", Type: TypeAddress},
	{Name: "pending_invoices", Type: TypeVec, Elem: queueEntryFields},
	{Name: "count", Type: TypeU64},
	{Name: "last_updated", Type: TypeI64},
	{Name: "bump", Type: TypeU8},
}

var OrgConfigSchema = &Schema{
	Kind:   clerk.KindOrgConfig,
	Tag:    OrgConfigTag,
	Fields: orgConfigFields,
	decode: func(b []byte) (any, error) { return DecodeOrgConfig(b) },
	encode: func(v any) ([]byte, error) {
		o, ok := v.(clerk.OrgConfig)
		if !ok {
			return nil, wrongType(clerk.KindOrgConfig, v)
		}
		return EncodeOrgConfig(o), nil
	},
}

var VendorSchema = &Schema{
	Kind:   clerk.KindVendor,
	Tag:    VendorTag,
	Fields: vendorFields,
	decode: func(b []byte) (any, error) { return DecodeVendor(b) },
	encode: func(v any) ([]byte, error) {
		o, ok := v.(clerk.Vendor)
		if !ok {
			return nil, wrongType(clerk.KindVendor, v)
		}
		return EncodeVendor(o), nil
	},
}

var InvoiceSchema = &Schema{
	Kind:   clerk.KindInvoice,
	Tag:    InvoiceTag,
	Fields: invoiceFields,
	decode: func(b []byte) (any, error) { return DecodeInvoice(b) },
	encode: func(v any) ([]byte, error) {
		o, ok := v.(clerk.Invoice)
		if !ok {
			return nil, wrongType(clerk.KindInvoice, v)
		}
		return EncodeInvoice(o), nil
	},
}

var InvoiceRequestSchema = &Schema{
	Kind:   clerk.KindInvoiceRequest,
	Tag:    InvoiceRequestTag,
	Fields: invoiceRequestFields,
	decode: func(b []byte) (any, error) { return DecodeInvoiceRequest(b) },
	encode: func(v any) ([]byte, error) {
		o, ok := v.(clerk.InvoiceRequest)
		if !ok {
			return nil, wrongType(clerk.KindInvoiceRequest, v)
		}
		return EncodeInvoiceRequest(o), nil
	},
}

var PaymentQueueSchema = &Schema{
	Kind:   clerk.KindPaymentQueue,
	Tag:    PaymentQueueTag,
	Fields: paymentQueueFields,
	decode: func(b []byte) (any, error) { return DecodePaymentQueue(b) },
	encode: func(v any) ([]byte, error) {
		o, ok := v.(clerk.PaymentQueue)
		if !ok {
			return nil, wrongType(clerk.KindPaymentQueue, v)
		}
		return EncodePaymentQueue(o), nil
	},
}

// Default holds every account schema of the invoice-claim program.
var Default = MustRegistry(OrgConfigSchema, VendorSchema, InvoiceSchema, InvoiceRequestSchema, PaymentQueueSchema)

func wrongType(kind clerk.Kind, v any) error {
	return clerk.NewErr(clerk.BadRequest, "encode %s: unexpected value type %T", kind, v)
}

// expectTag reads the leading tag and checks it belongs to the schema.
func expectTag(c *Cursor, want Tag, kind clerk.Kind) {
	tag := c.Tag()
	if c.Err() == nil && tag != want {
		c.fail(clerk.NewErr(clerk.UnknownTag, "tag %s is not %s", tag, kind))
	}
}

func DecodeOrgConfig(b []byte) (clerk.OrgConfig, error) {
	c := NewCursor(b)
	expectTag(c, OrgConfigTag, clerk.KindOrgConfig)
	o := clerk.OrgConfig{
		Authority:      c.Address("authority"),
		OracleSigner:   c.Address("oracle_signer"),
		TreasuryVault:  c.Address("treasury_vault"),
		Mint:           c.Address("mint"),
		PerInvoiceCap:  c.U64("per_invoice_cap"),
		DailyCap:       c.U64("daily_cap"),
		DailySpent:     c.U64("daily_spent"),
		AuditRateBps:   c.U16("audit_rate_bps"),
		Paused:         c.Bool("paused"),
		InvoiceCounter: c.U64("invoice_counter"),
		Version:        c.U8("version"),
		Bump:           c.U8("bump"),
	}
	if c.Err() != nil {
		return clerk.OrgConfig{}, c.Err()
	}
	return o, nil
}

func EncodeOrgConfig(o clerk.OrgConfig) []byte {
	w := NewWriter(TagLength + layoutMinSize(orgConfigFields))
	w.Tag(OrgConfigTag)
	w.Address(o.Authority)
	w.Address(o.OracleSigner)
	w.Address(o.TreasuryVault)
	w.Address(o.Mint)
	w.U64(o.PerInvoiceCap)
	w.U64(o.DailyCap)
	w.U64(o.DailySpent)
	w.U16(o.AuditRateBps)
	w.Bool(o.Paused)
	w.U64(o.InvoiceCounter)
	w.U8(o.Version)
	w.U8(o.Bump)
	return w.Bytes()
}

func DecodeVendor(b []byte) (clerk.Vendor, error) {
	c := NewCursor(b)
	expectTag(c, VendorTag, clerk.KindVendor)
	v := clerk.Vendor{
		Org:         c.Address("org"),
		Name:        c.String("vendor_name"),
		Wallet:      c.Address("wallet"),
		TotalPaid:   c.U64("total_paid"),
		LastPayment: c.I64("last_payment"),
		IsActive:    c.Bool("is_active"),
	}
	if c.Err() != nil {
		return clerk.Vendor{}, c.Err()
	}
	return v, nil
}

func EncodeVendor(v clerk.Vendor) []byte {
	w := NewWriter(TagLength + layoutMinSize(vendorFields) + len(v.Name))
	w.Tag(VendorTag)
	w.Address(v.Org)
	w.String(v.Name)
	w.Address(v.Wallet)
	w.U64(v.TotalPaid)
	w.I64(v.LastPayment)
	w.Bool(v.IsActive)
	return w.Bytes()
}

func DecodeInvoice(b []byte) (clerk.Invoice, error) {
	c := NewCursor(b)
	expectTag(c, InvoiceTag, clerk.KindInvoice)
	inv := clerk.Invoice{
		Requester:  c.Address("requester"),
		Vendor:     c.Address("vendor"),
		VendorName: c.String("vendor_name"),
		Amount:     c.U64("amount"),
		DueDate:    c.I64("due_date"),
		ContentRef: c.String("content_ref"),
		Status:     clerk.InvoiceStatus(c.Variant("status", clerk.InvoiceStatusCount)),
		CreatedAt:  c.I64("created_at"),
		Nonce:      c.U64("nonce"),
	}
	if c.Err() != nil {
		return clerk.Invoice{}, c.Err()
	}
	return inv, nil
}

func EncodeInvoice(inv clerk.Invoice) []byte {
	w := NewWriter(TagLength + layoutMinSize(invoiceFields) + len(inv.VendorName) + len(inv.ContentRef))
	w.Tag(InvoiceTag)
	w.Address(inv.Requester)
	w.Address(inv.Vendor)
	w.String(inv.VendorName)
	w.U64(inv.Amount)
	w.I64(inv.DueDate)
	w.String(inv.ContentRef)
	w.U8(uint8(inv.Status))
	w.I64(inv.CreatedAt)
	w.U64(inv.Nonce)
	return w.Bytes()
}

func DecodeInvoiceRequest(b []byte) (clerk.InvoiceRequest, error) {
	c := NewCursor(b)
	expectTag(c, InvoiceRequestTag, clerk.KindInvoiceRequest)
	req := clerk.InvoiceRequest{
		Requester:  c.Address("requester"),
		ContentRef: c.String("content_ref"),
		Status:     clerk.RequestStatus(c.Variant("status", clerk.RequestStatusCount)),
		CreatedAt:  c.I64("created_at"),
		Amount:     c.U64("amount"),
		Nonce:      c.U64("nonce"),
	}
	if c.Err() != nil {
		return clerk.InvoiceRequest{}, c.Err()
	}
	return req, nil
}

func EncodeInvoiceRequest(req clerk.InvoiceRequest) []byte {
	w := NewWriter(TagLength + layoutMinSize(invoiceRequestFields) + len(req.ContentRef))
	w.Tag(InvoiceRequestTag)
	w.Address(req.Requester)
	w.String(req.ContentRef)
	w.U8(uint8(req.Status))
	w.I64(req.CreatedAt)
	w.U64(req.Amount)
	w.U64(req.Nonce)
	return w.Bytes()
}

func DecodePaymentQueue(b []byte) (clerk.PaymentQueue, error) {
	c := NewCursor(b)
	expectTag(c, PaymentQueueTag, clerk.KindPaymentQueue)
	q := clerk.PaymentQueue{Org: c.Address("org")}
	n := c.VecLen("pending_invoices", layoutMinSize(queueEntryFields))
	if n > 0 {
		q.Entries = make([]clerk.QueueEntry, 0, n)
	}
	for i := 0; i < n && c.Err() == nil; i++ {
		q.Entries = append(q.Entries, clerk.QueueEntry{
			Invoice: c.Address("entry invoice"),
			Vendor:  c.Address("entry vendor"),
			DueDate: c.I64("entry due_date"),
			Amount:  c.U64("entry amount"),
		})
	}
	q.Count = c.U64("count")
	q.LastUpdated = c.I64("last_updated")
	q.Bump = c.U8("bump")
	if c.Err() != nil {
		return clerk.PaymentQueue{}, c.Err()
	}
	return q, nil
}

func EncodePaymentQueue(q clerk.PaymentQueue) []byte {
	w := NewWriter(TagLength + layoutMinSize(paymentQueueFields) + len(q.Entries)*layoutMinSize(queueEntryFields))
	w.Tag(PaymentQueueTag)
	w.Address(q.Org)
	w.VecLen(len(q.Entries))
	for _, e := range q.Entries {
		w.Address(e.Invoice)
		w.Address(e.Vendor)
		w.I64(e.DueDate)
		w.U64(e.Amount)
	}
	w.U64(q.Count)
	w.I64(q.LastUpdated)
	w.U8(q.Bump)
	return w.Bytes()
}
