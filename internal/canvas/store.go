package canvas

import (
	"context"
	"fmt"
	"sync"
)

// Dimensions is the size of the canvas in pixels. Both values are even.
type Dimensions struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// ByteLen is the length of the packed buffer holding a canvas of size d.
func (d Dimensions) ByteLen() int64 {
	return int64(d.Width) * int64(d.Height) / 2
}

func (d Dimensions) validate() error {
	if d.Width == 0 || d.Height == 0 || d.Width%2 != 0 || d.Height%2 != 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, d.Width, d.Height)
	}
	return nil
}

// Region is an inclusive rectangle of canvas coordinates.
type Region struct {
	XMin, YMin, XMax, YMax uint32
}

// Point is a canvas coordinate.
type Point struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

// RegionBetween returns the rectangle spanned by two corners given in any
// order.
func RegionBetween(a, b Point) Region {
	return Region{
		XMin: min(a.X, b.X), YMin: min(a.Y, b.Y),
		XMax: max(a.X, b.X), YMax: max(a.Y, b.Y),
	}
}

func (r Region) within(d Dimensions) error {
	if r.XMin > r.XMax || r.YMin > r.YMax || r.XMax >= d.Width || r.YMax >= d.Height {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) on %dx%d canvas",
			ErrInvalidRegion, r.XMin, r.YMin, r.XMax, r.YMax, d.Width, d.Height)
	}
	return nil
}

// Store is the authoritative view of the canvas.
//
// Lock order is dimMu before ioMu. Operations that only inspect the size
// take dimMu shared; resize and reset take it exclusively so a size change
// is visible together with the buffer that backs it. Every access to the
// storage medium holds ioMu.
type Store struct {
	dimMu sync.RWMutex
	dims  Dimensions

	ioMu    sync.Mutex
	storage Storage
}

// Open returns a Store over storage. An empty medium is initialized to a
// blank canvas of size dims; a medium of any other length than dims needs
// is rejected.
func Open(ctx context.Context, storage Storage, dims Dimensions) (*Store, error) {
	if err := dims.validate(); err != nil {
		return nil, err
	}
	size, err := storage.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	switch size {
	case 0:
		if err := storage.Replace(ctx, make([]byte, dims.ByteLen())); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	case dims.ByteLen():
	default:
		return nil, fmt.Errorf("%w: stored canvas is %d bytes, %dx%d needs %d",
			ErrStorageUnavailable, size, dims.Width, dims.Height, dims.ByteLen())
	}
	return &Store{dims: dims, storage: storage}, nil
}

func (s *Store) Dimensions() Dimensions {
	s.dimMu.RLock()
	defer s.dimMu.RUnlock()
	return s.dims
}

// WritePixel sets pixel (x, y) to palette index color. The sibling pixel
// sharing the byte is preserved.
func (s *Store) WritePixel(ctx context.Context, x, y uint32, color uint8) error {
	s.dimMu.RLock()
	defer s.dimMu.RUnlock()

	if x >= s.dims.Width || y >= s.dims.Height {
		return fmt.Errorf("%w: (%d,%d) on %dx%d canvas", ErrOutOfBounds, x, y, s.dims.Width, s.dims.Height)
	}
	if color >= PaletteSize {
		return fmt.Errorf("%w: index %d", ErrInvalidColor, color)
	}
	off, high := OffsetOf(x, y, s.dims.Width)

	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	b, err := s.storage.ReadByteAt(ctx, int64(off))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := s.storage.WriteAt(ctx, []byte{Pack(b, color, high)}, int64(off)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Snapshot returns the dimensions and every pixel value in row-major order,
// both observed at the same instant.
func (s *Store) Snapshot(ctx context.Context) (Dimensions, []uint8, error) {
	s.dimMu.RLock()
	defer s.dimMu.RUnlock()

	buf, err := s.load(ctx)
	if err != nil {
		return Dimensions{}, nil, err
	}
	return s.dims, unpackAll(buf), nil
}

// ReadAll returns every pixel value in row-major order.
func (s *Store) ReadAll(ctx context.Context) ([]uint8, error) {
	_, pixels, err := s.Snapshot(ctx)
	return pixels, err
}

// ReadRegion returns the pixel values inside r in row-major order. Pixels
// whose byte lies beyond the end of a short buffer are left out of the
// result rather than reported.
func (s *Store) ReadRegion(ctx context.Context, r Region) ([]uint8, error) {
	s.dimMu.RLock()
	defer s.dimMu.RUnlock()

	if err := r.within(s.dims); err != nil {
		return nil, err
	}
	buf, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	pixels := make([]uint8, 0, int(r.XMax-r.XMin+1)*int(r.YMax-r.YMin+1))
	for y := r.YMin; y <= r.YMax; y++ {
		for x := r.XMin; x <= r.XMax; x++ {
			off, high := OffsetOf(x, y, s.dims.Width)
			if off >= uint64(len(buf)) {
				continue
			}
			hi, lo := Unpack(buf[off])
			if high {
				pixels = append(pixels, hi)
			} else {
				pixels = append(pixels, lo)
			}
		}
	}
	return pixels, nil
}

func (s *Store) load(ctx context.Context) ([]byte, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	buf, err := s.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return buf, nil
}
