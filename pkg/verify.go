package clerk

// VerifyAddress re-derives the program address of a decoded record from
// its own fields and checks it matches the address it was fetched from.
// Invoices are accepted under the nonce-qualified, plain or legacy
// content-hash seeds.
func VerifyAddress(program, addr Address, record any) error {
	var candidates []func() (Derivation, error)
	switch r := record.(type) {
	case OrgConfig:
		candidates = append(candidates, func() (Derivation, error) { return OrgConfigAddress(program, r.Authority) })
	case Vendor:
		candidates = append(candidates, func() (Derivation, error) { return VendorAddress(program, r.Org, r.Name) })
	case InvoiceRequest:
		candidates = append(candidates, func() (Derivation, error) { return RequestAddress(program, r.Requester, r.Nonce) })
	case PaymentQueue:
		candidates = append(candidates, func() (Derivation, error) { return PaymentQueueAddress(program, r.Org) })
	case Invoice:
		candidates = append(candidates,
			func() (Derivation, error) { return InvoiceAddressWithNonce(program, r.Requester, r.Nonce) },
			func() (Derivation, error) { return InvoiceAddress(program, r.Requester) },
			func() (Derivation, error) { return LegacyInvoiceAddress(program, r.Requester, r.ContentRef) },
		)
	default:
		return NewErr(UnknownError, "VerifyAddress: unsupported record type %T", record)
	}
	for _, derive := range candidates {
		d, err := derive()
		if err != nil {
			// a vendor name over the seed limit cannot have been created on-chain
			if IsValidationError(err) {
				continue
			}
			return err
		}
		if d.Address == addr {
			return nil
		}
	}
	return &ErrorInfo{Code: AddressMismatch, Message: "address does not match the record's derivation seeds", Account: addr}
}
