package canvas

// Memory layout of the pixel buffer: two pixels per byte, row-major.
//
//	Pixels: (0,0) (1,0) (2,0) (3,0)
//	Values:   5     9     0     2
//	Bytes:    0x59        0x02
//
// The pixel at an even linear index lives in the high nibble.

// OffsetOf returns the byte holding pixel (x, y) on a canvas width pixels
// wide, and whether the pixel is the high nibble of that byte.
// The caller guarantees x < width.
func OffsetOf(x, y, width uint32) (byteIndex uint64, high bool) {
	linear := uint64(y)*uint64(width) + uint64(x)
	return linear / 2, linear%2 == 0
}

// Pack returns b with the selected nibble replaced by color.
// It panics if color is not a palette index; callers validate first.
func Pack(b byte, color uint8, high bool) byte {
	if color >= PaletteSize {
		panic("canvas: color index out of range")
	}
	if high {
		return b&0x0F | color<<4
	}
	return b&0xF0 | color
}

// Unpack splits b into its two pixel values.
func Unpack(b byte) (high, low uint8) {
	return b >> 4, b & 0x0F
}

const hexDigits = "0123456789abcdef"

// EncodeHex renders pixel values as one lowercase hex digit per pixel.
func EncodeHex(pixels []uint8) string {
	out := make([]byte, len(pixels))
	for i, p := range pixels {
		out[i] = hexDigits[p&0x0F]
	}
	return string(out)
}

func unpackAll(buf []byte) []uint8 {
	pixels := make([]uint8, 0, len(buf)*2)
	for _, b := range buf {
		hi, lo := Unpack(b)
		pixels = append(pixels, hi, lo)
	}
	return pixels
}
