package tool

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCodeString renders content as a terminal friendly QR code.
func QRCodeString(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode qrcode: %w", err)
	}
	return q.ToSmallString(false), nil
}
