package yuv

import (
	"bytes"
	"errors"
	"testing"
)

func planar(w, h int, yv, uv, vv byte, yPad, cPad int) (Plane, Plane, Plane) {
	yStride := w + yPad
	cStride := w/2 + cPad
	y := Plane{Data: bytes.Repeat([]byte{yv}, yStride*h), RowStride: yStride, PixelStride: 1}
	u := Plane{Data: bytes.Repeat([]byte{uv}, cStride*h/2), RowStride: cStride, PixelStride: 1}
	v := Plane{Data: bytes.Repeat([]byte{vv}, cStride*h/2), RowStride: cStride, PixelStride: 1}
	return y, u, v
}

// semiPlanar builds an interleaved V,U buffer and returns U and V views into it.
func semiPlanar(w, h int, uv, vv byte, rowStride int) (Plane, Plane) {
	uvH := h / 2
	backing := make([]byte, rowStride*uvH)
	for row := 0; row < uvH; row++ {
		for col := 0; col < w/2; col++ {
			backing[row*rowStride+2*col] = vv
			backing[row*rowStride+2*col+1] = uv
		}
	}
	v := Plane{Data: backing, RowStride: rowStride, PixelStride: 2}
	u := Plane{Data: backing[1:], RowStride: rowStride, PixelStride: 2}
	return u, v
}

func TestToNV21_OutputLength(t *testing.T) {
	tests := []struct{ w, h int }{
		{2, 2}, {4, 4}, {16, 16}, {640, 480}, {1280, 720},
	}
	for _, tt := range tests {
		y, u, v := planar(tt.w, tt.h, 1, 2, 3, 0, 0)
		out, err := ToNV21(tt.w, tt.h, y, u, v)
		if err != nil {
			t.Fatalf("%dx%d: unexpected error: %v", tt.w, tt.h, err)
		}
		if want := tt.w * tt.h * 3 / 2; len(out) != want {
			t.Errorf("%dx%d: len = %d, want %d", tt.w, tt.h, len(out), want)
		}
	}
}

func TestToNV21_PlanarLayout(t *testing.T) {
	const w, h = 4, 4
	y, u, v := planar(w, h, 0x80, 0x10, 0x20, 0, 0)
	out, err := ToNV21(w, h, y, u, v)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < w*h; i++ {
		if out[i] != 0x80 {
			t.Fatalf("luma[%d] = %#x, want 0x80", i, out[i])
		}
	}
	chroma := out[w*h:]
	for i := 0; i < len(chroma); i += 2 {
		if chroma[i] != 0x20 || chroma[i+1] != 0x10 {
			t.Fatalf("chroma pair %d = (%#x, %#x), want (0x20, 0x10)", i/2, chroma[i], chroma[i+1])
		}
	}
}

func TestToNV21_PaddedStrides(t *testing.T) {
	const w, h = 16, 16
	y, u, v := planar(w, h, 7, 8, 9, 0, 0)
	py, pu, pv := planar(w, h, 7, 8, 9, 32, 8)

	// Padding bytes must never reach the output.
	for row := 0; row < h; row++ {
		for col := w; col < py.RowStride; col++ {
			py.Data[row*py.RowStride+col] = 0xff
		}
	}

	want, err := ToNV21(w, h, y, u, v)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ToNV21(w, h, py, pu, pv)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("padded planes produced different output")
	}
}

func TestToNV21_SemiPlanarMatchesPlanar(t *testing.T) {
	sizes := []struct{ w, h int }{{2, 2}, {4, 4}, {16, 16}, {640, 480}}
	for _, s := range sizes {
		y, u, v := planar(s.w, s.h, 0x50, 0x60, 0x70, 0, 0)
		want, err := ToNV21(s.w, s.h, y, u, v)
		if err != nil {
			t.Fatal(err)
		}

		su, sv := semiPlanar(s.w, s.h, 0x60, 0x70, s.w)
		got, err := ToNV21(s.w, s.h, y, su, sv)
		if err != nil {
			t.Fatalf("%dx%d semi-planar: %v", s.w, s.h, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%dx%d: semi-planar output differs from planar", s.w, s.h)
		}
	}
}

func TestToNV21_SemiPlanarTrailingU(t *testing.T) {
	const w, h = 4, 2
	y := Plane{Data: make([]byte, w*h), RowStride: w, PixelStride: 1}
	// One chroma row: V0 U0 V1 U1. The view for U ends exactly at U1.
	backing := []byte{0xa0, 0xb0, 0xa1, 0xb1}
	v := Plane{Data: backing[:3], RowStride: 4, PixelStride: 2}
	u := Plane{Data: backing[1:], RowStride: 4, PixelStride: 2}

	out, err := ToNV21(w, h, y, u, v)
	if err != nil {
		t.Fatal(err)
	}
	if got := out[w*h:]; !bytes.Equal(got, backing) {
		t.Errorf("chroma = %x, want %x", got, backing)
	}
}

func TestToNV21_Errors(t *testing.T) {
	y, u, v := planar(4, 4, 0, 0, 0, 0, 0)

	tests := []struct {
		name    string
		w, h    int
		y, u, v Plane
	}{
		{"odd width", 3, 4, y, u, v},
		{"zero height", 4, 0, y, u, v},
		{"short luma", 4, 4, Plane{Data: y.Data[:10], RowStride: 4, PixelStride: 1}, u, v},
		{"luma stride below width", 4, 4, Plane{Data: y.Data, RowStride: 2, PixelStride: 1}, u, v},
		{"short chroma", 4, 4, y, Plane{Data: u.Data[:1], RowStride: 2, PixelStride: 1}, v},
		{"mismatched strides", 4, 4, y, Plane{Data: u.Data, RowStride: 2, PixelStride: 1}, Plane{Data: v.Data, RowStride: 3, PixelStride: 1}},
		{"pixel stride 3", 4, 4, y, Plane{Data: make([]byte, 64), RowStride: 8, PixelStride: 3}, Plane{Data: make([]byte, 64), RowStride: 8, PixelStride: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToNV21(tt.w, tt.h, tt.y, tt.u, tt.v)
			var ce *ConversionError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConversionError, got %v", err)
			}
		})
	}
}

func TestSplitI420(t *testing.T) {
	const w, h = 4, 4
	raw := make([]byte, NV21Size(w, h))
	for i := range raw {
		raw[i] = byte(i)
	}

	y, u, v, err := SplitI420(w, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(y.Data) != 16 || len(u.Data) != 4 || len(v.Data) != 4 {
		t.Fatalf("plane sizes = %d/%d/%d, want 16/4/4", len(y.Data), len(u.Data), len(v.Data))
	}
	if u.Data[0] != 16 || v.Data[0] != 20 {
		t.Errorf("u[0]=%d v[0]=%d, want 16 and 20", u.Data[0], v.Data[0])
	}

	if _, _, _, err := SplitI420(w, h, raw[:10]); err == nil {
		t.Error("expected error for short buffer")
	}
}
