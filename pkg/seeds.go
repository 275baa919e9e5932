package clerk

import (
	"encoding/binary"
	"errors"

	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

// Seed prefixes used by the invoice-claim program.
const (
	SeedOrgConfig    = "org_config"
	SeedVendor       = "vendor"
	SeedInvoice      = "invoice"
	SeedRequest      = "request"
	SeedEscrowAuth   = "escrow_auth"
	SeedPaymentQueue = "payment_queue"
)

// Derivation is a derived address with its canonical bump.
type Derivation struct {
	Address Address `json:"address"`
	Bump    uint8   `json:"bump"`
}

// Derive finds the canonical program address for seeds. Seed-limit
// violations are ValidationFailed; an exhausted bump search is
// DerivationExhausted.
func Derive(program Address, seeds ...[]byte) (Derivation, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		switch {
		case errors.Is(err, solana.ErrDerivationExhausted):
			return Derivation{}, NewErr(DerivationExhausted, "derive: %v", err)
		case errors.Is(err, solana.ErrMaxSeedLength), errors.Is(err, solana.ErrTooManySeeds):
			return Derivation{}, NewErr(ValidationFailed, "derive: %v", err)
		default:
			return Derivation{}, NewErr(UnknownError, "derive: %v", err)
		}
	}
	return Derivation{Address: addr, Bump: bump}, nil
}

// NonceSeed is the 8-byte little-endian form of a nonce.
func NonceSeed(nonce uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, nonce)
	return b
}

func OrgConfigAddress(program, authority Address) (Derivation, error) {
	return Derive(program, []byte(SeedOrgConfig), authority[:])
}

func VendorAddress(program, org Address, vendorName string) (Derivation, error) {
	return Derive(program, []byte(SeedVendor), org[:], []byte(vendorName))
}

func InvoiceAddress(program, authority Address) (Derivation, error) {
	return Derive(program, []byte(SeedInvoice), authority[:])
}

func InvoiceAddressWithNonce(program, authority Address, nonce uint64) (Derivation, error) {
	return Derive(program, []byte(SeedInvoice), authority[:], NonceSeed(nonce))
}

// LegacyInvoiceAddress is the older invoice layout seeded by the hash of
// the content reference.
func LegacyInvoiceAddress(program, authority Address, contentRef string) (Derivation, error) {
	h := solana.Sha256([]byte(contentRef))
	return Derive(program, []byte(SeedInvoice), authority[:], h[:])
}

func RequestAddress(program, authority Address, nonce uint64) (Derivation, error) {
	return Derive(program, []byte(SeedRequest), authority[:], NonceSeed(nonce))
}

func EscrowAuthorityAddress(program, invoice Address) (Derivation, error) {
	return Derive(program, []byte(SeedEscrowAuth), invoice[:])
}

func PaymentQueueAddress(program, org Address) (Derivation, error) {
	return Derive(program, []byte(SeedPaymentQueue), org[:])
}
