package solana

import (
	"fmt"
)

const PublicKeyLength = 32

// PublicKey is a 32-byte ed25519 public key or program-derived address.
// Its text form is base58.
type PublicKey [PublicKeyLength]byte

// SystemProgramID is the all-zero key.
var SystemProgramID = PublicKey{}

func ParsePublicKey(str string) (PublicKey, error) {
	var key PublicKey
	b, err := Base58Decode(str)
	if err != nil {
		return key, fmt.Errorf("PublicKey: invalid base58: %v", err)
	}
	if len(b) != PublicKeyLength {
		return key, fmt.Errorf("PublicKey: expecting %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// MustParsePublicKey is for constants and test fixtures.
func MustParsePublicKey(str string) PublicKey {
	key, err := ParsePublicKey(str)
	if err != nil {
		panic(err)
	}
	return key
}

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var key PublicKey
	if len(b) != PublicKeyLength {
		return key, fmt.Errorf("PublicKey: expecting %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(key[:], b)
	return key, nil
}

func (k PublicKey) String() string {
	return Base58Encode(k[:])
}

func (k PublicKey) Bytes() []byte {
	return k[:]
}

func (k PublicKey) IsZero() bool {
	return k == SystemProgramID
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	key, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = key
	return nil
}
