package codec

import (
	"bytes"
	"reflect"
	"testing"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

var (
	program   = solana.MustParsePublicKey("DVxvMr8TyPWpnT4tQc56SCLXAiNr2VC4w22R6i7B1V9U")
	authority = solana.MustParsePublicKey("Af2Y56WUFQuTTTYHMCjMozYsDxvTvSM6YQnyv8E6EK3v")
	orgPDA    = solana.MustParsePublicKey("39u8T3b2x1862mfbuwLMmPphXgiecvY4T8kL6sD5PBCW")
	vendorPDA = solana.MustParsePublicKey("7wX28QQcFuhhbP8Ro2Fg4yhyxFnBBopSTiUe42dau3YE")
)

func key(b byte) clerk.Address {
	var a clerk.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func sampleOrg() clerk.OrgConfig {
	return clerk.OrgConfig{
		Authority:      authority,
		OracleSigner:   key(2),
		TreasuryVault:  key(3),
		Mint:           key(4),
		PerInvoiceCap:  1_000_000_000,
		DailyCap:       10_000_000_000,
		DailySpent:     250_000_000,
		AuditRateBps:   500,
		Paused:         false,
		InvoiceCounter: 42,
		Version:        1,
		Bump:           255,
	}
}

func sampleVendor() clerk.Vendor {
	return clerk.Vendor{Org: orgPDA, Name: "Acme Corp", Wallet: key(9), TotalPaid: 1_000_000, LastPayment: 1_717_000_000, IsActive: true}
}

func sampleInvoice() clerk.Invoice {
	return clerk.Invoice{
		Requester:  authority,
		Vendor:     vendorPDA,
		VendorName: "Acme Corp",
		Amount:     125_500_000,
		DueDate:    1_719_792_000,
		ContentRef: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Status:     clerk.StatusAuditPending,
		CreatedAt:  1_717_171_717,
		Nonce:      7,
	}
}

func sampleRequest() clerk.InvoiceRequest {
	return clerk.InvoiceRequest{
		Requester:  authority,
		ContentRef: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Status:     clerk.RequestProcessed,
		CreatedAt:  1_717_171_000,
		Amount:     125_500_000,
		Nonce:      7,
	}
}

func sampleQueue() clerk.PaymentQueue {
	return clerk.PaymentQueue{
		Org: orgPDA,
		Entries: []clerk.QueueEntry{
			{Invoice: key(5), Vendor: vendorPDA, DueDate: 1_719_792_000, Amount: 10},
			{Invoice: key(6), Vendor: key(7), DueDate: -1, Amount: 1<<64 - 1},
		},
		Count:       2,
		LastUpdated: 1_717_171_800,
		Bump:        253,
	}
}

func samples() map[clerk.Kind]any {
	return map[clerk.Kind]any{
		clerk.KindOrgConfig:      sampleOrg(),
		clerk.KindVendor:         sampleVendor(),
		clerk.KindInvoice:        sampleInvoice(),
		clerk.KindInvoiceRequest: sampleRequest(),
		clerk.KindPaymentQueue:   sampleQueue(),
	}
}

func TestRoundTrip(t *testing.T) {
	for kind, value := range samples() {
		schema, ok := Default.ByKind(kind)
		if !ok {
			t.Fatalf("%s: no schema", kind)
		}
		blob, err := schema.Encode(value)
		if err != nil {
			t.Fatalf("%s: Encode: %v", kind, err)
		}
		gotKind, decoded, err := Default.Decode(blob)
		if err != nil {
			t.Fatalf("%s: Decode: %v", kind, err)
		}
		if gotKind != kind {
			t.Errorf("%s: classified as %s", kind, gotKind)
		}
		if !reflect.DeepEqual(decoded, value) {
			t.Errorf("%s: did not round-trip:\n%+v\n%+v", kind, decoded, value)
		}
	}
}

func TestRoundTripEmptyQueue(t *testing.T) {
	q := clerk.PaymentQueue{Org: orgPDA, Count: 0, LastUpdated: 5, Bump: 1}
	out, err := DecodePaymentQueue(EncodePaymentQueue(q))
	if err != nil {
		t.Fatalf("DecodePaymentQueue: %v", err)
	}
	if !reflect.DeepEqual(out, q) {
		t.Errorf("empty queue did not round-trip: %+v", out)
	}
}

func TestTrailingPaddingIgnored(t *testing.T) {
	// accounts are allocated with fixed space, so records carry zero padding
	blob := append(EncodeVendor(sampleVendor()), make([]byte, 64)...)
	v, err := DecodeVendor(blob)
	if err != nil {
		t.Fatalf("DecodeVendor: %v", err)
	}
	if v != sampleVendor() {
		t.Errorf("DecodeVendor: wrong value with padding: %+v", v)
	}
}

func TestTruncation(t *testing.T) {
	for kind, value := range samples() {
		schema, _ := Default.ByKind(kind)
		blob, _ := schema.Encode(value)
		// the last byte removed, and every shorter prefix
		for n := len(blob) - 1; n >= 0; n-- {
			_, err := schema.Decode(blob[:n])
			if !clerk.IsError(err, clerk.TruncatedBuffer) {
				t.Fatalf("%s: prefix of %d/%d bytes: expected TruncatedBuffer, got %v", kind, n, len(blob), err)
			}
		}
	}
}

func TestInvoiceStatusExhaustive(t *testing.T) {
	blob := EncodeInvoice(sampleInvoice())
	statusAt := len(blob) - 8 - 8 - 1 // before created_at and nonce
	for ord := 0; ord < 256; ord++ {
		b := bytes.Clone(blob)
		b[statusAt] = byte(ord)
		inv, err := DecodeInvoice(b)
		if ord < clerk.InvoiceStatusCount {
			if err != nil {
				t.Fatalf("ordinal %d: %v", ord, err)
			}
			if inv.Status != clerk.InvoiceStatuses[ord] {
				t.Errorf("ordinal %d: decoded as %s", ord, inv.Status)
			}
			continue
		}
		if !clerk.IsError(err, clerk.UnknownVariant) {
			t.Errorf("ordinal %d: expected UnknownVariant, got %v (%s)", ord, err, inv.Status)
		}
	}
	b := bytes.Clone(blob)
	b[statusAt] = 2
	inv, _ := DecodeInvoice(b)
	if inv.Status != clerk.StatusAuditPending || inv.Status.String() != "AuditPending" {
		t.Errorf("ordinal 2: expected AuditPending, got %s", inv.Status)
	}
}

func TestRequestStatusExhaustive(t *testing.T) {
	blob := EncodeInvoiceRequest(sampleRequest())
	statusAt := len(blob) - 8 - 8 - 8 - 1 // before created_at, amount and nonce
	for ord := 0; ord < 256; ord++ {
		b := bytes.Clone(blob)
		b[statusAt] = byte(ord)
		req, err := DecodeInvoiceRequest(b)
		if ord < clerk.RequestStatusCount {
			if err != nil || req.Status != clerk.RequestStatus(ord) {
				t.Errorf("ordinal %d: %v %s", ord, err, req.Status)
			}
			continue
		}
		if !clerk.IsError(err, clerk.UnknownVariant) {
			t.Errorf("ordinal %d: expected UnknownVariant, got %v", ord, err)
		}
	}
}

func TestWrongTag(t *testing.T) {
	blob := EncodeVendor(sampleVendor())
	_, err := DecodeInvoice(blob)
	if !clerk.IsError(err, clerk.UnknownTag) {
		t.Errorf("DecodeInvoice: expected UnknownTag for a vendor blob, got %v", err)
	}
}

func TestInvalidUTF8Name(t *testing.T) {
	v := sampleVendor()
	v.Name = "Acme\xffCorp"
	_, err := DecodeVendor(EncodeVendor(v))
	if !clerk.IsError(err, clerk.InvalidEncoding) {
		t.Errorf("DecodeVendor: expected InvalidEncoding, got %v", err)
	}
}

func TestOrgConfigScenario(t *testing.T) {
	blob := concat(
		OrgConfigTag[:],
		authority[:], key(2).Bytes(), key(3).Bytes(), key(4).Bytes(),
		hx2b("00ca9a3b00000000"), // per_invoice_cap 1_000_000_000
		hx2b("00e40b5402000000"), // daily_cap 10_000_000_000
		hx2b("0000000000000000"), // daily_spent
		hx2b("f401"),             // audit_rate_bps 500
		hx2b("00"),               // paused
		hx2b("0000000000000000"), // invoice_counter
		hx2b("01"),               // version
		hx2b("ff"),               // bump
	)
	org, err := DecodeOrgConfig(blob)
	if err != nil {
		t.Fatalf("DecodeOrgConfig: %v", err)
	}
	if org.PerInvoiceCap != 1_000_000_000 || org.DailyCap != 10_000_000_000 {
		t.Errorf("DecodeOrgConfig: wrong caps: %d %d", org.PerInvoiceCap, org.DailyCap)
	}
	if org.AuditRatePercent() != 5.0 {
		t.Errorf("AuditRatePercent: expected 5.0, got %v", org.AuditRatePercent())
	}
	if org.DailyCap < org.PerInvoiceCap {
		t.Errorf("DecodeOrgConfig: daily cap below per-invoice cap")
	}
	if org.Version != 1 || org.Authority != authority {
		t.Errorf("DecodeOrgConfig: wrong version/authority: %d %s", org.Version, org.Authority)
	}
}

func TestVendorScenario(t *testing.T) {
	blob := concat(
		VendorTag[:],
		orgPDA[:],
		hx2b("09000000"), []byte("Acme Corp"),
		key(9).Bytes(),
		hx2b("40420f0000000000"), // total_paid 1_000_000
		hx2b("0000000000000000"), // last_payment
		hx2b("01"),               // is_active
	)
	v, err := DecodeVendor(blob)
	if err != nil {
		t.Fatalf("DecodeVendor: %v", err)
	}
	if v.Name != "Acme Corp" || !v.IsActive {
		t.Errorf("DecodeVendor: wrong name/active: %q %v", v.Name, v.IsActive)
	}
	if v.TotalPaid != 1_000_000 || v.Wallet != key(9) {
		t.Errorf("DecodeVendor: wrong fields: %+v", v)
	}
	// the decoded name reproduces the address the blob was fetched from
	d, err := clerk.VendorAddress(program, v.Org, v.Name)
	if err != nil {
		t.Fatalf("VendorAddress: %v", err)
	}
	if d.Address != vendorPDA || d.Bump != 254 {
		t.Errorf("VendorAddress: wrong derivation: %s %d", d.Address, d.Bump)
	}
	if err := clerk.VerifyAddress(program, vendorPDA, v); err != nil {
		t.Errorf("VerifyAddress: %v", err)
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
