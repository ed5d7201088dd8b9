package yuv

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// EncodeJPEG compresses a w×h NV21 buffer at the given quality (1-100).
func EncodeJPEG(w, h int, nv21 []byte, quality int) ([]byte, error) {
	if len(nv21) != NV21Size(w, h) {
		return nil, &ConversionError{Width: w, Height: h, Reason: fmt.Sprintf("nv21 buffer has %d bytes, want %d", len(nv21), NV21Size(w, h))}
	}
	quality = max(1, min(quality, 100))

	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	copy(img.Y, nv21[:w*h])

	chroma := nv21[w*h:]
	for i := range img.Cb {
		img.Cr[i] = chroma[2*i]
		img.Cb[i] = chroma[2*i+1]
	}

	var buf bytes.Buffer
	buf.Grow(w * h / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
