package yuv

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func TestEncodeJPEG(t *testing.T) {
	const w, h = 64, 48
	nv21 := make([]byte, NV21Size(w, h))
	for i := 0; i < w*h; i++ {
		nv21[i] = byte(i % 256)
	}
	for i := w * h; i < len(nv21); i++ {
		nv21[i] = 128
	}

	out, err := EncodeJPEG(w, h, nv21, 80)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte{0xff, 0xd8}) {
		t.Fatal("output does not start with a JPEG SOI marker")
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Errorf("decoded size = %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
}

func TestEncodeJPEG_QualityClamped(t *testing.T) {
	nv21 := make([]byte, NV21Size(8, 8))
	for _, q := range []int{-5, 0, 101, 1000} {
		if _, err := EncodeJPEG(8, 8, nv21, q); err != nil {
			t.Errorf("quality %d: %v", q, err)
		}
	}
}

func TestEncodeJPEG_WrongSize(t *testing.T) {
	if _, err := EncodeJPEG(8, 8, make([]byte, 10), 80); err == nil {
		t.Error("expected error for short buffer")
	}
}
