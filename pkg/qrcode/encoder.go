package qrcode

import (
	"encoding/base64"
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// Encoder renders validation URLs into scannable QR rasters. The visual
// parameters are fixed: medium error correction, black on white, standard
// quiet zone.
type Encoder struct {
	size int
}

// NewEncoder builds an encoder with the default raster size.
func NewEncoder() *Encoder {
	return &Encoder{size: defaultSize}
}

// EncodePNG returns the QR code for the given payload as PNG bytes.
func (e *Encoder) EncodePNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload empty")
	}
	png, err := qr.Encode(payload, qr.Medium, e.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// EncodeDataURI returns the QR code as an embeddable data URI.
func (e *Encoder) EncodeDataURI(payload string) (string, error) {
	png, err := e.EncodePNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
