package webapi

import (
	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MaxQRSize     = 1024
)

func GenerateQRCodePNG(content string, size int) ([]byte, error) {
	if size <= 0 || size > MaxQRSize {
		size = DefaultQRSize
	}
	// Generate the QR code as a PNG image
	pngBytes, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return []byte{}, err
	}
	return pngBytes, nil
}
