/*
Package instruction encodes the invoice-claim program's state-changing
actions. Each builder validates its args, derives the accounts it needs,
and writes the instruction tag followed by the args. Signing and
submission belong to the caller.
*/
package instruction

import (
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/codec"
	"github.com/ledgerclerk/ledgerclerk/pkg/solana"
)

// Action names, as declared by the program.
const (
	OrgInit                = "org_init"
	UpdateOrgConfig        = "update_org_config"
	RegisterVendor         = "register_vendor"
	ActivateVendor         = "activate_vendor"
	DeactivateVendor       = "deactivate_vendor"
	UpdateVendorWallet     = "update_vendor_wallet"
	RequestExtraction      = "request_invoice_extraction"
	SubmitExtractionResult = "submit_extraction_result"
	AuditDecide            = "audit_decide"
	RequestAuditVRF        = "request_invoice_audit_vrf"
	ProcessInvoicePayment  = "process_invoice_payment"
	CompletePayment        = "complete_payment"
	CloseInvoice           = "close_invoice"
	CloseRequest           = "close_request"
)

// Tag is the 8-byte instruction discriminator of an action.
func Tag(action string) codec.Tag {
	return codec.Tag(solana.Sighash("global", action))
}

// Builder encodes instructions for one deployed program.
type Builder struct {
	Program clerk.Address
}

func NewBuilder(program clerk.Address) Builder {
	return Builder{Program: program}
}

func (b Builder) build(action string, accounts []clerk.AccountMeta, args func(w *codec.Writer)) clerk.Instruction {
	w := codec.NewWriter(codec.TagLength + 64)
	w.Tag(Tag(action))
	if args != nil {
		args(w)
	}
	return clerk.Instruction{Action: action, ProgramID: b.Program, Accounts: accounts, Data: w.Bytes()}
}

func signer(a clerk.Address) clerk.AccountMeta {
	return clerk.AccountMeta{Pubkey: a, IsSigner: true, IsWritable: true}
}

func readonlySigner(a clerk.Address) clerk.AccountMeta {
	return clerk.AccountMeta{Pubkey: a, IsSigner: true}
}

func writable(a clerk.Address) clerk.AccountMeta {
	return clerk.AccountMeta{Pubkey: a, IsWritable: true}
}

func readonly(a clerk.Address) clerk.AccountMeta {
	return clerk.AccountMeta{Pubkey: a}
}

var systemProgram = readonly(solana.SystemProgramID)

// OrgInitArgs creates an organization owned by Authority.
type OrgInitArgs struct {
	Authority     clerk.Address `json:"authority"`
	TreasuryVault clerk.Address `json:"treasury_vault"`
	Mint          clerk.Address `json:"mint"`
	PerInvoiceCap uint64        `json:"per_invoice_cap"`
	DailyCap      uint64        `json:"daily_cap"`
	AuditRateBps  uint16        `json:"audit_rate_bps"`
}

func (b Builder) OrgInit(a OrgInitArgs) (clerk.Instruction, error) {
	err := firstErr(
		ValidateAddress("authority", a.Authority),
		ValidateAddress("treasury_vault", a.TreasuryVault),
		ValidateAddress("mint", a.Mint),
		ValidateCaps(a.PerInvoiceCap, a.DailyCap),
		ValidateAuditRate(a.AuditRateBps),
	)
	if err != nil {
		return clerk.Instruction{}, err
	}
	org, err := clerk.OrgConfigAddress(b.Program, a.Authority)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{writable(org.Address), signer(a.Authority), systemProgram}
	return b.build(OrgInit, accounts, func(w *codec.Writer) {
		w.Address(a.TreasuryVault)
		w.Address(a.Mint)
		w.U64(a.PerInvoiceCap)
		w.U64(a.DailyCap)
		w.U16(a.AuditRateBps)
	}), nil
}

// UpdateOrgConfigArgs changes only the fields that are set.
type UpdateOrgConfigArgs struct {
	Authority     clerk.Address  `json:"authority"`
	OracleSigner  *clerk.Address `json:"oracle_signer"`
	PerInvoiceCap *uint64        `json:"per_invoice_cap"`
	DailyCap      *uint64        `json:"daily_cap"`
	Paused        *bool          `json:"paused"`
	Mint          *clerk.Address `json:"mint"`
}

func (b Builder) UpdateOrgConfig(a UpdateOrgConfigArgs) (clerk.Instruction, error) {
	errs := []error{ValidateAddress("authority", a.Authority)}
	if a.OracleSigner != nil {
		errs = append(errs, ValidateAddress("oracle_signer", *a.OracleSigner))
	}
	if a.Mint != nil {
		errs = append(errs, ValidateAddress("mint", *a.Mint))
	}
	if a.PerInvoiceCap != nil {
		errs = append(errs, ValidateAmount("per_invoice_cap", *a.PerInvoiceCap))
	}
	if a.DailyCap != nil {
		errs = append(errs, ValidateAmount("daily_cap", *a.DailyCap))
	}
	// the on-chain values are unknown here, so daily >= per is only checked
	// when both change together
	if a.PerInvoiceCap != nil && a.DailyCap != nil {
		errs = append(errs, ValidateCaps(*a.PerInvoiceCap, *a.DailyCap))
	}
	if err := firstErr(errs...); err != nil {
		return clerk.Instruction{}, err
	}
	org, err := clerk.OrgConfigAddress(b.Program, a.Authority)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{writable(org.Address), readonlySigner(a.Authority)}
	return b.build(UpdateOrgConfig, accounts, func(w *codec.Writer) {
		optAddress(w, a.OracleSigner)
		optU64(w, a.PerInvoiceCap)
		optU64(w, a.DailyCap)
		if a.Paused == nil {
			w.OptionNone()
		} else {
			w.OptionSome()
			w.Bool(*a.Paused)
		}
		optAddress(w, a.Mint)
	}), nil
}

func optAddress(w *codec.Writer, v *clerk.Address) {
	if v == nil {
		w.OptionNone()
		return
	}
	w.OptionSome()
	w.Address(*v)
}

func optU64(w *codec.Writer, v *uint64) {
	if v == nil {
		w.OptionNone()
		return
	}
	w.OptionSome()
	w.U64(*v)
}

// VendorArgs identifies a vendor of Authority's organization.
type VendorArgs struct {
	Authority  clerk.Address `json:"authority"`
	VendorName string        `json:"vendor_name"`
}

func (b Builder) vendorAccounts(a VendorArgs, authority clerk.AccountMeta) ([]clerk.AccountMeta, error) {
	err := firstErr(
		ValidateAddress("authority", a.Authority),
		ValidateVendorName(a.VendorName),
	)
	if err != nil {
		return nil, err
	}
	org, err := clerk.OrgConfigAddress(b.Program, a.Authority)
	if err != nil {
		return nil, err
	}
	vendor, err := clerk.VendorAddress(b.Program, org.Address, a.VendorName)
	if err != nil {
		return nil, err
	}
	return []clerk.AccountMeta{writable(vendor.Address), readonly(org.Address), authority}, nil
}

type RegisterVendorArgs struct {
	VendorArgs
	Wallet clerk.Address `json:"wallet"`
}

func (b Builder) RegisterVendor(a RegisterVendorArgs) (clerk.Instruction, error) {
	if err := ValidateAddress("wallet", a.Wallet); err != nil {
		return clerk.Instruction{}, err
	}
	accounts, err := b.vendorAccounts(a.VendorArgs, signer(a.Authority))
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts = append(accounts, systemProgram)
	return b.build(RegisterVendor, accounts, func(w *codec.Writer) {
		w.String(a.VendorName)
		w.Address(a.Wallet)
	}), nil
}

func (b Builder) ActivateVendor(a VendorArgs) (clerk.Instruction, error) {
	return b.vendorToggle(ActivateVendor, a)
}

func (b Builder) DeactivateVendor(a VendorArgs) (clerk.Instruction, error) {
	return b.vendorToggle(DeactivateVendor, a)
}

func (b Builder) vendorToggle(action string, a VendorArgs) (clerk.Instruction, error) {
	accounts, err := b.vendorAccounts(a, readonlySigner(a.Authority))
	if err != nil {
		return clerk.Instruction{}, err
	}
	return b.build(action, accounts, nil), nil
}

type UpdateVendorWalletArgs struct {
	VendorArgs
	NewWallet clerk.Address `json:"new_wallet"`
}

func (b Builder) UpdateVendorWallet(a UpdateVendorWalletArgs) (clerk.Instruction, error) {
	if err := ValidateAddress("new_wallet", a.NewWallet); err != nil {
		return clerk.Instruction{}, err
	}
	accounts, err := b.vendorAccounts(a.VendorArgs, readonlySigner(a.Authority))
	if err != nil {
		return clerk.Instruction{}, err
	}
	return b.build(UpdateVendorWallet, accounts, func(w *codec.Writer) {
		w.Address(a.NewWallet)
	}), nil
}

// RequestExtractionArgs asks the oracle to extract an invoice from an
// uploaded document.
type RequestExtractionArgs struct {
	Authority  clerk.Address `json:"authority"`
	ContentRef string        `json:"content_ref"`
	Amount     uint64        `json:"amount"`
	Nonce      uint64        `json:"nonce"`
}

func (b Builder) RequestExtraction(a RequestExtractionArgs) (clerk.Instruction, error) {
	err := firstErr(
		ValidateAddress("authority", a.Authority),
		ValidateContentRef(a.ContentRef),
		ValidateAmount("amount", a.Amount),
	)
	if err != nil {
		return clerk.Instruction{}, err
	}
	req, err := clerk.RequestAddress(b.Program, a.Authority, a.Nonce)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{signer(a.Authority), writable(req.Address), systemProgram}
	return b.build(RequestExtraction, accounts, func(w *codec.Writer) {
		w.String(a.ContentRef)
		w.U64(a.Amount)
		w.U64(a.Nonce)
	}), nil
}

// SubmitExtractionArgs is the oracle's answer to a request. It creates
// the invoice under the requester's nonce-qualified address.
type SubmitExtractionArgs struct {
	Oracle       clerk.Address `json:"oracle"`
	OrgAuthority clerk.Address `json:"org_authority"`
	Requester    clerk.Address `json:"requester"`
	Nonce        uint64        `json:"nonce"`
	VendorName   string        `json:"vendor_name"`
	Amount       uint64        `json:"amount"`
	DueDate      int64         `json:"due_date"`
}

func (b Builder) SubmitExtractionResult(a SubmitExtractionArgs) (clerk.Instruction, error) {
	err := firstErr(
		ValidateAddress("oracle", a.Oracle),
		ValidateAddress("org_authority", a.OrgAuthority),
		ValidateAddress("requester", a.Requester),
		ValidateVendorName(a.VendorName),
		ValidateAmount("amount", a.Amount),
	)
	if err != nil {
		return clerk.Instruction{}, err
	}
	org, err := clerk.OrgConfigAddress(b.Program, a.OrgAuthority)
	if err != nil {
		return clerk.Instruction{}, err
	}
	vendor, err := clerk.VendorAddress(b.Program, org.Address, a.VendorName)
	if err != nil {
		return clerk.Instruction{}, err
	}
	req, err := clerk.RequestAddress(b.Program, a.Requester, a.Nonce)
	if err != nil {
		return clerk.Instruction{}, err
	}
	inv, err := clerk.InvoiceAddressWithNonce(b.Program, a.Requester, a.Nonce)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{
		signer(a.Oracle),
		writable(req.Address),
		writable(inv.Address),
		writable(org.Address),
		readonly(vendor.Address),
		systemProgram,
	}
	return b.build(SubmitExtractionResult, accounts, func(w *codec.Writer) {
		w.String(a.VendorName)
		w.U64(a.Amount)
		w.I64(a.DueDate)
	}), nil
}

// InvoiceArgs identifies an invoice and the signer acting on it. The org
// is derived from OrgAuthority.
type InvoiceArgs struct {
	Signer       clerk.Address `json:"signer"`
	OrgAuthority clerk.Address `json:"org_authority"`
	Invoice      clerk.Address `json:"invoice"`
}

func (a InvoiceArgs) validate() error {
	return firstErr(
		ValidateAddress("signer", a.Signer),
		ValidateAddress("org_authority", a.OrgAuthority),
		ValidateAddress("invoice", a.Invoice),
	)
}

func (b Builder) orgOf(a InvoiceArgs) (clerk.Address, error) {
	if err := a.validate(); err != nil {
		return clerk.Address{}, err
	}
	org, err := clerk.OrgConfigAddress(b.Program, a.OrgAuthority)
	if err != nil {
		return clerk.Address{}, err
	}
	return org.Address, nil
}

type AuditDecideArgs struct {
	InvoiceArgs
	Approve bool `json:"approve"`
}

// AuditDecide records the reviewer's decision on an invoice sampled for
// audit. Accounts: reviewer, org_config, invoice.
func (b Builder) AuditDecide(a AuditDecideArgs) (clerk.Instruction, error) {
	org, err := b.orgOf(a.InvoiceArgs)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{signer(a.Signer), writable(org), writable(a.Invoice)}
	return b.build(AuditDecide, accounts, func(w *codec.Writer) {
		w.Bool(a.Approve)
	}), nil
}

// Accounts of the ephemeral VRF service. The program appends the identity,
// VRF program, slot hashes and system program to every VRF request.
var (
	DefaultOracleQueue = solana.MustParsePublicKey("Cuj97ggrhhidhbu39TijNVqE74xvKJ69gDervRUXAxGh")
	VRFProgramID       = solana.MustParsePublicKey("Vrf1RNUjXmQGjmQrQLvJHs9SNkvDJEsRVFPkfSQUwGz")
	SlotHashesSysvar   = solana.MustParsePublicKey("SysvarS1otHashes111111111111111111111111111")
)

const seedProgramIdentity = "identity"

type AuditVRFArgs struct {
	InvoiceArgs
	ClientSeed  uint8         `json:"client_seed"`
	OracleQueue clerk.Address `json:"oracle_queue"` // zero means DefaultOracleQueue
}

// RequestAuditVRF asks for the randomness that samples an invoice for
// audit. Signer pays for the request.
func (b Builder) RequestAuditVRF(a AuditVRFArgs) (clerk.Instruction, error) {
	org, err := b.orgOf(a.InvoiceArgs)
	if err != nil {
		return clerk.Instruction{}, err
	}
	queue, err := clerk.PaymentQueueAddress(b.Program, org)
	if err != nil {
		return clerk.Instruction{}, err
	}
	identity, err := clerk.Derive(b.Program, []byte(seedProgramIdentity))
	if err != nil {
		return clerk.Instruction{}, err
	}
	oracleQueue := a.OracleQueue
	if oracleQueue.IsZero() {
		oracleQueue = DefaultOracleQueue
	}
	accounts := []clerk.AccountMeta{
		signer(a.Signer),
		writable(org),
		writable(a.Invoice),
		writable(queue.Address),
		writable(oracleQueue),
		readonly(identity.Address),
		readonly(VRFProgramID),
		readonly(SlotHashesSysvar),
		systemProgram,
	}
	return b.build(RequestAuditVRF, accounts, func(w *codec.Writer) {
		w.U8(a.ClientSeed)
	}), nil
}

// PaymentArgs names the invoice authority. The payment instructions take
// the authority's seed-derived invoice, never a nonce-qualified one.
type PaymentArgs struct {
	Authority clerk.Address `json:"authority"`
}

// the program's payment path keeps invoices under their own prefix
const seedPaymentInvoice = "invoice_account"

// ProcessInvoicePayment moves a validated invoice into escrow.
func (b Builder) ProcessInvoicePayment(a PaymentArgs) (clerk.Instruction, error) {
	if err := ValidateAddress("authority", a.Authority); err != nil {
		return clerk.Instruction{}, err
	}
	inv, err := clerk.Derive(b.Program, []byte(seedPaymentInvoice), a.Authority[:])
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{writable(inv.Address), readonlySigner(a.Authority)}
	return b.build(ProcessInvoicePayment, accounts, nil), nil
}

func (b Builder) CompletePayment(a PaymentArgs) (clerk.Instruction, error) {
	if err := ValidateAddress("authority", a.Authority); err != nil {
		return clerk.Instruction{}, err
	}
	inv, err := clerk.InvoiceAddress(b.Program, a.Authority)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{writable(inv.Address), readonlySigner(a.Authority)}
	return b.build(CompletePayment, accounts, nil), nil
}

// CloseInvoiceArgs closes an invoice and returns its rent to Authority.
type CloseInvoiceArgs struct {
	Authority clerk.Address `json:"authority"`
	Invoice   clerk.Address `json:"invoice"`
}

func (b Builder) CloseInvoice(a CloseInvoiceArgs) (clerk.Instruction, error) {
	err := firstErr(
		ValidateAddress("authority", a.Authority),
		ValidateAddress("invoice", a.Invoice),
	)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{writable(a.Invoice), signer(a.Authority)}
	return b.build(CloseInvoice, accounts, nil), nil
}

type CloseRequestArgs struct {
	Authority clerk.Address `json:"authority"`
	Nonce     uint64        `json:"nonce"`
}

func (b Builder) CloseRequest(a CloseRequestArgs) (clerk.Instruction, error) {
	if err := ValidateAddress("authority", a.Authority); err != nil {
		return clerk.Instruction{}, err
	}
	req, err := clerk.RequestAddress(b.Program, a.Authority, a.Nonce)
	if err != nil {
		return clerk.Instruction{}, err
	}
	accounts := []clerk.AccountMeta{writable(req.Address), signer(a.Authority)}
	return b.build(CloseRequest, accounts, nil), nil
}
