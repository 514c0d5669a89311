package pass

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode means the frame holds no readable QR code. It is the normal
// result for most camera frames.
var ErrNoCode = errors.New("no qr code in frame")

const maxFrameWidth = 1280

var decodeHints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// ReadImage is the binary decode step of the scanner: it returns the raw text
// of the first QR code found in img. The raw frame is tried first, then a
// downscaled high-contrast grayscale copy for dim or noisy camera frames.
func ReadImage(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrNoCode
	}
	if text, ok := readBitmap(img); ok {
		return text, nil
	}

	prepared := imaging.Grayscale(img)
	if prepared.Bounds().Dx() > maxFrameWidth {
		prepared = imaging.Resize(prepared, maxFrameWidth, 0, imaging.Lanczos)
	}
	prepared = imaging.AdjustContrast(prepared, 30)
	prepared = imaging.Sharpen(prepared, 0.5)

	if text, ok := readBitmap(prepared); ok {
		return text, nil
	}
	return "", ErrNoCode
}

func readBitmap(img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	// NotFound, checksum and format errors all mean nothing usable is in view
	res, err := qrcode.NewQRCodeReader().Decode(bmp, decodeHints)
	if err != nil || res.GetText() == "" {
		return "", false
	}
	return res.GetText(), true
}
