package canvas

import (
	"context"
	"fmt"
)

// Whiten sets every pixel of r to palette index 0. Pixels outside r keep
// their value even when they share a byte with an edge of r.
func (s *Store) Whiten(ctx context.Context, r Region) error {
	s.dimMu.RLock()
	defer s.dimMu.RUnlock()

	if err := r.within(s.dims); err != nil {
		return err
	}

	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	for y := r.YMin; y <= r.YMax; y++ {
		first, _ := OffsetOf(r.XMin, y, s.dims.Width)
		last, _ := OffsetOf(r.XMax, y, s.dims.Width)
		span := make([]byte, last-first+1)

		// Odd XMin starts mid-byte and even XMax ends mid-byte.
		if r.XMin%2 == 1 {
			b, err := s.storage.ReadByteAt(ctx, int64(first))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
			}
			span[0] = Pack(b, 0, false)
		}
		if r.XMax%2 == 0 {
			b, err := s.storage.ReadByteAt(ctx, int64(last))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
			}
			span[len(span)-1] = Pack(b, 0, true)
		}

		if err := s.storage.WriteAt(ctx, span, int64(first)); err != nil {
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}
	return nil
}

// Resize grows the canvas to width x height. Existing pixels keep their
// coordinates and every newly exposed pixel is palette index 0. The new
// buffer is built in one pass and swapped in whole, so a failure leaves the
// canvas as it was.
func (s *Store) Resize(ctx context.Context, width, height uint32) error {
	next := Dimensions{Width: width, Height: height}
	if err := next.validate(); err != nil {
		return err
	}

	s.dimMu.Lock()
	defer s.dimMu.Unlock()

	old := s.dims
	if next.Width < old.Width || next.Height < old.Height {
		return fmt.Errorf("%w: %dx%d to %dx%d", ErrShrinkNotAllowed, old.Width, old.Height, next.Width, next.Height)
	}

	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	buf, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResizeFailed, err)
	}
	if err := s.storage.Replace(ctx, grow(buf, old, next)); err != nil {
		return fmt.Errorf("%w: %w", ErrResizeFailed, err)
	}
	s.dims = next
	return nil
}

// grow lays out buf, a canvas of size old, on a blank canvas of size next.
// Rows missing from a short buffer stay blank.
func grow(buf []byte, old, next Dimensions) []byte {
	out := make([]byte, next.ByteLen())
	oldRow := int(old.Width / 2)
	newRow := int(next.Width / 2)
	for y := 0; y < int(old.Height); y++ {
		from := y * oldRow
		if from >= len(buf) {
			break
		}
		to := min(from+oldRow, len(buf))
		copy(out[y*newRow:], buf[from:to])
	}
	return out
}

// Reset replaces the canvas with a blank one of width x height. Unlike
// Resize the new size may be smaller.
func (s *Store) Reset(ctx context.Context, width, height uint32) error {
	next := Dimensions{Width: width, Height: height}
	if err := next.validate(); err != nil {
		return err
	}

	s.dimMu.Lock()
	defer s.dimMu.Unlock()
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if err := s.storage.Replace(ctx, make([]byte, next.ByteLen())); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	s.dims = next
	return nil
}
