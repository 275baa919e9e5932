package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

var (
	ErrOnCurve             = errors.New("derived address is on the ed25519 curve")
	ErrDerivationExhausted = errors.New("no off-curve address found for any bump seed")
	ErrTooManySeeds        = errors.New("too many seeds")
	ErrMaxSeedLength       = errors.New("seed exceeds maximum length")
)

// IsOnCurve reports whether b decodes as a valid compressed ed25519 point.
// A program-derived address must not, so that no private key exists for it.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("%w: %d > %d", ErrTooManySeeds, len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
	}
	return nil
}

// CreateProgramAddress hashes the seeds (the bump, if any, is the caller's
// last seed) with the program id. It fails with ErrOnCurve if the result
// is a valid curve point.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	if err := checkSeeds(seeds); err != nil {
		return PublicKey{}, err
	}
	return createProgramAddress(seeds, program)
}

func createProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, seeds...)
	parts = append(parts, program[:], []byte(pdaMarker))
	hash := Sha256(parts...)
	if IsOnCurve(hash[:]) {
		return PublicKey{}, ErrOnCurve
	}
	return PublicKey(hash), nil
}

// FindProgramAddress searches bump seeds from 255 down to 0 and returns the
// first off-curve address with its bump.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	// the bump occupies one seed slot
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, fmt.Errorf("%w: %d seeds plus bump > %d", ErrTooManySeeds, len(seeds), MaxSeeds)
	}
	if err := checkSeeds(seeds); err != nil {
		return PublicKey{}, 0, err
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	bump := []byte{0}
	withBump[len(seeds)] = bump
	for b := 255; b >= 0; b-- {
		bump[0] = uint8(b)
		addr, err := createProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(b), nil
		}
	}
	return PublicKey{}, 0, ErrDerivationExhausted
}
