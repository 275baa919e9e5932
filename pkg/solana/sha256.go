package solana

import "crypto/sha256"

func Sha256(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Sighash returns the 8-byte Anchor discriminator for `namespace:name`.
// Accounts use the "account" namespace with the struct name, instructions
// use "global" with the snake_case method name.
func Sighash(namespace string, name string) [8]byte {
	sum := Sha256([]byte(namespace + ":" + name))
	var tag [8]byte
	copy(tag[:], sum[:8])
	return tag
}
