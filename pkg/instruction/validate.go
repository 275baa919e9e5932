package instruction

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ipfs/go-cid"
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

const (
	MaxVendorNameUnits = 50
	MaxAuditRateBps    = 10_000
)

func invalid(format string, args ...any) error {
	return clerk.NewErr(clerk.ValidationFailed, format, args...)
}

// ValidateVendorName enforces 1-50 UTF-16 code units, and the 32-byte
// seed limit since the name is a derivation seed.
func ValidateVendorName(name string) error {
	if !utf8.ValidString(name) {
		return invalid("vendor name is not valid UTF-8")
	}
	units := 0
	for _, r := range name {
		units += utf16.RuneLen(r)
	}
	if units == 0 {
		return invalid("vendor name is empty")
	}
	if units > MaxVendorNameUnits {
		return invalid("vendor name is %d characters, maximum is %d", units, MaxVendorNameUnits)
	}
	if len(name) > solana.MaxSeedLength {
		return invalid("vendor name is %d bytes, maximum seed length is %d", len(name), solana.MaxSeedLength)
	}
	return nil
}

// ValidateContentRef requires a parseable IPFS CID.
func ValidateContentRef(ref string) error {
	if ref == "" {
		return invalid("content reference is empty")
	}
	if _, err := cid.Decode(ref); err != nil {
		return invalid("content reference %q is not a valid CID: %v", ref, err)
	}
	return nil
}

func ValidateAddress(name string, a clerk.Address) error {
	if a.IsZero() {
		return invalid("%s must not be the zero address", name)
	}
	return nil
}

func ValidateAmount(name string, v uint64) error {
	if v == 0 {
		return invalid("%s must be greater than zero", name)
	}
	return nil
}

// ValidateCaps checks the org spending caps: per-invoice cap > 0 and
// daily cap >= per-invoice cap.
func ValidateCaps(perInvoiceCap, dailyCap uint64) error {
	if err := ValidateAmount("per_invoice_cap", perInvoiceCap); err != nil {
		return err
	}
	if dailyCap < perInvoiceCap {
		return invalid("daily_cap %d is below per_invoice_cap %d", dailyCap, perInvoiceCap)
	}
	return nil
}

func ValidateAuditRate(bps uint16) error {
	if bps > MaxAuditRateBps {
		return invalid("audit_rate_bps %d exceeds %d", bps, MaxAuditRateBps)
	}
	return nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
