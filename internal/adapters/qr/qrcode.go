package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"

	"eventticketing/internal/domain"
)

const defaultSize = 256

type pngGenerator struct {
	size int
}

// NewGenerator returns a QRGenerator producing size x size PNGs.
func NewGenerator(size int) domain.QRGenerator {
	if size <= 0 {
		size = defaultSize
	}
	return &pngGenerator{size: size}
}

func (g *pngGenerator) PNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
