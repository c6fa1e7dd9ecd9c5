package canvas

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk on fire")

// memStorage is an in-memory medium with switchable failures.
type memStorage struct {
	buf         []byte
	failLoad    bool
	failWrite   bool
	failReplace bool
}

func (m *memStorage) Size(context.Context) (int64, error) { return int64(len(m.buf)), nil }

func (m *memStorage) Load(context.Context) ([]byte, error) {
	if m.failLoad {
		return nil, errDisk
	}
	return append([]byte(nil), m.buf...), nil
}

func (m *memStorage) ReadByteAt(_ context.Context, off int64) (byte, error) {
	if m.failLoad {
		return 0, errDisk
	}
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	return m.buf[off], nil
}

func (m *memStorage) WriteAt(_ context.Context, p []byte, off int64) error {
	if m.failWrite {
		return errDisk
	}
	copy(m.buf[off:], p)
	return nil
}

func (m *memStorage) Replace(_ context.Context, buf []byte) error {
	if m.failReplace {
		return errDisk
	}
	m.buf = append([]byte(nil), buf...)
	return nil
}

func openMem(t *testing.T, w, h uint32) (*Store, *memStorage) {
	t.Helper()
	mem := &memStorage{}
	s, err := Open(context.Background(), mem, Dimensions{Width: w, Height: h})
	require.NoError(t, err)
	return s, mem
}

func openFile(t *testing.T, w, h uint32) *Store {
	t.Helper()
	fs, err := OpenFile(filepath.Join(t.TempDir(), "state", "pixels.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	s, err := Open(context.Background(), fs, Dimensions{Width: w, Height: h})
	require.NoError(t, err)
	return s
}

func pixelAt(t *testing.T, s *Store, x, y uint32) uint8 {
	t.Helper()
	px, err := s.ReadRegion(context.Background(), Region{XMin: x, YMin: y, XMax: x, YMax: y})
	require.NoError(t, err)
	require.Len(t, px, 1)
	return px[0]
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes empty medium", func(t *testing.T) {
		_, mem := openMem(t, 80, 80)
		assert.Len(t, mem.buf, 3200)
	})

	t.Run("keeps matching medium", func(t *testing.T) {
		mem := &memStorage{buf: []byte{0x59, 0x00, 0x00, 0x02}}
		s, err := Open(ctx, mem, Dimensions{Width: 4, Height: 2})
		require.NoError(t, err)
		px, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint8{5, 9, 0, 0, 0, 0, 0, 2}, px)
	})

	t.Run("rejects mismatched medium", func(t *testing.T) {
		mem := &memStorage{buf: make([]byte, 10)}
		_, err := Open(ctx, mem, Dimensions{Width: 4, Height: 2})
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("rejects odd dimensions", func(t *testing.T) {
		_, err := Open(ctx, &memStorage{}, Dimensions{Width: 5, Height: 2})
		assert.ErrorIs(t, err, ErrInvalidDimensions)
		_, err = Open(ctx, &memStorage{}, Dimensions{Width: 0, Height: 2})
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := openFile(t, 4, 2)

	require.NoError(t, s.WritePixel(ctx, 0, 0, 5))
	require.NoError(t, s.WritePixel(ctx, 1, 0, 9))
	require.NoError(t, s.WritePixel(ctx, 3, 1, 2))

	px, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint8{5, 9, 0, 0, 0, 0, 0, 2}, px)
}

func TestWritePixelRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openFile(t, 6, 4)

	for y := uint32(0); y < 4; y++ {
		for x := uint32(0); x < 6; x++ {
			color := uint8((x + 3*y) % PaletteSize)
			before, err := s.ReadAll(ctx)
			require.NoError(t, err)

			require.NoError(t, s.WritePixel(ctx, x, y, color))

			after, err := s.ReadAll(ctx)
			require.NoError(t, err)
			i := int(y*6 + x)
			assert.Equal(t, color, after[i])
			before[i] = color
			assert.Equal(t, before, after, "other pixels changed writing (%d,%d)", x, y)
		}
	}
}

func TestWritePixelValidation(t *testing.T) {
	ctx := context.Background()
	s, mem := openMem(t, 4, 2)

	assert.ErrorIs(t, s.WritePixel(ctx, 4, 0, 1), ErrOutOfBounds)
	assert.ErrorIs(t, s.WritePixel(ctx, 0, 2, 1), ErrOutOfBounds)
	assert.ErrorIs(t, s.WritePixel(ctx, 0, 0, 16), ErrInvalidColor)
	assert.Equal(t, make([]byte, 4), mem.buf)
}

func TestWritePixelStorageFailure(t *testing.T) {
	ctx := context.Background()
	s, mem := openMem(t, 4, 2)

	mem.failWrite = true
	err := s.WritePixel(ctx, 0, 0, 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, errDisk)

	mem.failWrite, mem.failLoad = false, true
	assert.ErrorIs(t, s.WritePixel(ctx, 0, 0, 1), ErrStorageUnavailable)
	_, err = s.ReadAll(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, err = s.ReadRegion(ctx, Region{XMax: 1, YMax: 1})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestConcurrentWritesShareByte(t *testing.T) {
	ctx := context.Background()
	s := openFile(t, 8, 8)

	var wg sync.WaitGroup
	for y := uint32(0); y < 8; y++ {
		for x := uint32(0); x < 8; x++ {
			wg.Add(1)
			go func(x, y uint32) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					assert.NoError(t, s.WritePixel(ctx, x, y, uint8((x+y)%PaletteSize)))
				}
			}(x, y)
		}
	}
	wg.Wait()

	px, err := s.ReadAll(ctx)
	require.NoError(t, err)
	for i, v := range px {
		x, y := uint32(i%8), uint32(i/8)
		assert.Equal(t, uint8((x+y)%PaletteSize), v, "pixel (%d,%d)", x, y)
	}
}

func TestReadRegion(t *testing.T) {
	ctx := context.Background()
	s, _ := openMem(t, 4, 4)
	for i := uint32(0); i < 16; i++ {
		require.NoError(t, s.WritePixel(ctx, i%4, i/4, uint8(i)))
	}

	tests := []struct {
		name   string
		region Region
		want   []uint8
	}{
		{"single pixel", Region{XMin: 2, YMin: 1, XMax: 2, YMax: 1}, []uint8{6}},
		{"odd aligned", Region{XMin: 1, YMin: 2, XMax: 2, YMax: 3}, []uint8{9, 10, 13, 14}},
		{"column", Region{XMin: 3, YMin: 0, XMax: 3, YMax: 3}, []uint8{3, 7, 11, 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, err := s.ReadRegion(ctx, tt.region)
			require.NoError(t, err)
			assert.Equal(t, tt.want, px)
		})
	}

	t.Run("whole canvas equals read all", func(t *testing.T) {
		all, err := s.ReadAll(ctx)
		require.NoError(t, err)
		px, err := s.ReadRegion(ctx, Region{XMax: 3, YMax: 3})
		require.NoError(t, err)
		assert.Equal(t, all, px)
	})
}

func TestReadRegionInvalid(t *testing.T) {
	s, _ := openMem(t, 4, 4)
	for _, r := range []Region{
		{XMin: 2, XMax: 1, YMax: 1},
		{YMin: 2, YMax: 1, XMax: 1},
		{XMax: 4, YMax: 1},
		{XMax: 1, YMax: 4},
	} {
		_, err := s.ReadRegion(context.Background(), r)
		assert.ErrorIs(t, err, ErrInvalidRegion, "%+v", r)
	}
}

func TestReadRegionShortBuffer(t *testing.T) {
	ctx := context.Background()
	s, mem := openMem(t, 4, 2)
	mem.buf = []byte{0x12, 0x34}

	px, err := s.ReadRegion(ctx, Region{XMax: 3, YMax: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 4}, px)
}

func TestRegionBetween(t *testing.T) {
	r := RegionBetween(Point{X: 5, Y: 1}, Point{X: 2, Y: 7})
	assert.Equal(t, Region{XMin: 2, YMin: 1, XMax: 5, YMax: 7}, r)
}
