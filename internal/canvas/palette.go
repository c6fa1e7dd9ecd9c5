package canvas

// PaletteSize is the number of colors a pixel can take. A pixel value is
// its index in the palette and always fits in one nibble.
const PaletteSize = 16

// Palette is the ordered set of colors a canvas is drawn from.
type Palette [PaletteSize]string

// Colors is the palette used by every canvas. Index 0 is the color of a
// freshly cleared pixel.
var Colors = Palette{
	"#FFFFFF", "#E4E4E4", "#888888", "#222222", "#FFA7D1", "#E50000", "#E59500", "#A06A42",
	"#E5D900", "#94E044", "#02BE01", "#00D3DD", "#0083C7", "#0000EA", "#CD6EEA", "#820080",
}

// Index returns the palette index of color. Matching is exact, so "#ffffff"
// is not a member of Colors.
func (p Palette) Index(color string) (uint8, bool) {
	for i, c := range p {
		if c == color {
			return uint8(i), true
		}
	}
	return 0, false
}
