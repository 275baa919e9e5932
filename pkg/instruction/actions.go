package instruction

import (
	"bytes"
	"encoding/json"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
)

type action struct {
	name  string
	build func(b Builder, args []byte) (clerk.Instruction, error)
}

// jsonAction adapts a typed builder to raw JSON args.
func jsonAction[A any](name string, fn func(Builder, A) (clerk.Instruction, error)) action {
	return action{name, func(b Builder, raw []byte) (clerk.Instruction, error) {
		var a A
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return clerk.Instruction{}, clerk.NewErr(clerk.BadRequest, "%s: invalid args: %v", name, err)
		}
		return fn(b, a)
	}}
}

var actions = []action{
	jsonAction(OrgInit, Builder.OrgInit),
	jsonAction(UpdateOrgConfig, Builder.UpdateOrgConfig),
	jsonAction(RegisterVendor, Builder.RegisterVendor),
	jsonAction(ActivateVendor, Builder.ActivateVendor),
	jsonAction(DeactivateVendor, Builder.DeactivateVendor),
	jsonAction(UpdateVendorWallet, Builder.UpdateVendorWallet),
	jsonAction(RequestExtraction, Builder.RequestExtraction),
	jsonAction(SubmitExtractionResult, Builder.SubmitExtractionResult),
	jsonAction(AuditDecide, Builder.AuditDecide),
	jsonAction(RequestAuditVRF, Builder.RequestAuditVRF),
	jsonAction(ProcessInvoicePayment, Builder.ProcessInvoicePayment),
	jsonAction(CompletePayment, Builder.CompletePayment),
	jsonAction(CloseInvoice, Builder.CloseInvoice),
	jsonAction(CloseRequest, Builder.CloseRequest),
}

// Actions lists every action name Encode accepts.
func Actions() []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.name
	}
	return names
}

// Encode builds the named action from JSON args, as sent to the admin API
// and the encode command.
func (b Builder) Encode(name string, args []byte) (clerk.Instruction, error) {
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}
	for _, a := range actions {
		if a.name == name {
			return a.build(b, args)
		}
	}
	return clerk.Instruction{}, clerk.NewErr(clerk.BadRequest, "unknown action: %q", name)
}
