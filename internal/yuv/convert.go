// Package yuv converts planar camera output into the flat NV21 layout.
//
// Camera sensors hand out YUV 4:2:0 frames as three planes, each with its own
// row stride (rows may carry padding) and, for chroma, a pixel stride of 1
// (fully planar) or 2 (semi-planar, V and U interleaved in one buffer).
// ToNV21 flattens that into w*h bytes of luma followed by w*h/2 bytes of
// interleaved V,U samples.
package yuv

import "fmt"

// Plane describes one image plane inside a byte buffer.
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// ConversionError reports plane data that is inconsistent with the frame size.
type ConversionError struct {
	Width  int
	Height int
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("yuv: cannot convert %dx%d frame: %s", e.Width, e.Height, e.Reason)
}

// NV21Size returns the NV21 buffer length for a w×h frame.
func NV21Size(w, h int) int {
	return w * h * 3 / 2
}

// ToNV21 converts Y, U and V planes of a w×h 4:2:0 frame to NV21.
// The U and V planes must share row and pixel strides.
func ToNV21(w, h int, y, u, v Plane) ([]byte, error) {
	fail := func(format string, args ...any) ([]byte, error) {
		return nil, &ConversionError{Width: w, Height: h, Reason: fmt.Sprintf(format, args...)}
	}

	if w < 2 || h < 2 || w%2 != 0 || h%2 != 0 {
		return fail("dimensions must be even and at least 2x2")
	}
	if y.RowStride < w {
		return fail("luma row stride %d is smaller than width", y.RowStride)
	}
	if need := (h-1)*y.RowStride + w; len(y.Data) < need {
		return fail("luma plane has %d bytes, need %d", len(y.Data), need)
	}
	if u.RowStride != v.RowStride || u.PixelStride != v.PixelStride {
		return fail("chroma planes disagree on strides (u %d/%d, v %d/%d)",
			u.RowStride, u.PixelStride, v.RowStride, v.PixelStride)
	}

	out := make([]byte, NV21Size(w, h))

	pos := 0
	for row := 0; row < h; row++ {
		start := row * y.RowStride
		copy(out[pos:pos+w], y.Data[start:start+w])
		pos += w
	}

	uvW, uvH := w/2, h/2
	rowStride, pixelStride := v.RowStride, v.PixelStride

	switch pixelStride {
	case 1:
		if rowStride < uvW {
			return fail("chroma row stride %d is smaller than %d", rowStride, uvW)
		}
		need := (uvH-1)*rowStride + uvW
		if len(u.Data) < need || len(v.Data) < need {
			return fail("planar chroma needs %d bytes per plane, have u=%d v=%d", need, len(u.Data), len(v.Data))
		}
		for row := 0; row < uvH; row++ {
			for col := 0; col < uvW; col++ {
				idx := row*rowStride + col
				out[pos] = v.Data[idx]
				out[pos+1] = u.Data[idx]
				pos += 2
			}
		}

	case 2:
		// Each V-plane row already reads V,U,V,U,...,V. The span stops one
		// byte short of the final U, which is read from the U plane instead.
		span := uvW*2 - 1
		if rowStride < span {
			return fail("semi-planar row stride %d is smaller than %d", rowStride, span)
		}
		lastRow := (uvH - 1) * rowStride
		if need := lastRow + span; len(v.Data) < need {
			return fail("semi-planar V plane has %d bytes, need %d", len(v.Data), need)
		}
		if need := lastRow + (uvW-1)*pixelStride + 1; len(u.Data) < need {
			return fail("semi-planar U plane has %d bytes, need %d", len(u.Data), need)
		}
		for row := 0; row < uvH; row++ {
			start := row * rowStride
			copy(out[pos:pos+span], v.Data[start:start+span])
			pos += uvW * 2
			out[pos-1] = u.Data[row*rowStride+(uvW-1)*pixelStride]
		}

	default:
		return fail("unsupported chroma pixel stride %d", pixelStride)
	}

	return out, nil
}

// SplitI420 views a packed I420 buffer (Y, then U, then V, no padding)
// as three planes.
func SplitI420(w, h int, raw []byte) (y, u, v Plane, err error) {
	if w < 2 || h < 2 || w%2 != 0 || h%2 != 0 {
		err = &ConversionError{Width: w, Height: h, Reason: "dimensions must be even and at least 2x2"}
		return
	}
	if len(raw) != NV21Size(w, h) {
		err = &ConversionError{Width: w, Height: h, Reason: fmt.Sprintf("i420 buffer has %d bytes, want %d", len(raw), NV21Size(w, h))}
		return
	}
	ySize := w * h
	cSize := ySize / 4
	y = Plane{Data: raw[:ySize], RowStride: w, PixelStride: 1}
	u = Plane{Data: raw[ySize : ySize+cSize], RowStride: w / 2, PixelStride: 1}
	v = Plane{Data: raw[ySize+cSize:], RowStride: w / 2, PixelStride: 1}
	return
}
