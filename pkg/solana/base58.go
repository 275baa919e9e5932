package solana

import (
	"github.com/mr-tron/base58"
)

func Base58Encode(bytes []byte) string {
	return base58.FastBase58Encoding(bytes)
}

func Base58Decode(str string) ([]byte, error) {
	return base58.FastBase58Decoding(str)
}
