package qr

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/metrics"
)

// ImageDecoder decodes QR codes from RGBA pixel buffers. It satisfies
// capture.Decoder. Each attempt runs twice: once as-is and once with
// inverted polarity, so both dark-on-light and light-on-dark ticket
// designs are detected.
type ImageDecoder struct{}

func NewImageDecoder() ImageDecoder {
	return ImageDecoder{}
}

func (ImageDecoder) Decode(pix []uint8, width, height int) (string, bool) {
	if width <= 0 || height <= 0 || len(pix) < 4*width*height {
		return "", false
	}
	metrics.DecodeAttemptsTotal.Inc()

	img := &image.RGBA{Pix: pix, Stride: 4 * width, Rect: image.Rect(0, 0, width, height)}
	if text, ok := decodeImage(img); ok {
		metrics.DecodeHitsTotal.Inc()
		return text, true
	}

	if text, ok := decodeImage(invert(img)); ok {
		metrics.DecodeHitsTotal.Inc()
		return text, true
	}
	return "", false
}

func decodeImage(img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	reader := zxqrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}

func invert(src *image.RGBA) *image.RGBA {
	out := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	for i := 0; i < len(src.Pix); i += 4 {
		out.Pix[i] = 255 - src.Pix[i]
		out.Pix[i+1] = 255 - src.Pix[i+1]
		out.Pix[i+2] = 255 - src.Pix[i+2]
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}
