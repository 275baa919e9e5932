package clerk

import "encoding/hex"

// AccountMeta is one account reference of an instruction.
type AccountMeta struct {
	Pubkey     Address `json:"pubkey"`
	IsSigner   bool    `json:"is_signer"`
	IsWritable bool    `json:"is_writable"`
}

// Instruction is an encoded program call, ready to hand to an external
// signer/submitter. Data is the 8-byte instruction tag followed by the
// encoded arguments.
type Instruction struct {
	Action    string        `json:"action"`
	ProgramID Address       `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"` // base64 in JSON
}

func (i Instruction) DataHex() string {
	return hex.EncodeToString(i.Data)
}
