package canvas

import "errors"

var (
	ErrOutOfBounds        = errors.New("pixel out of bounds")
	ErrInvalidColor       = errors.New("invalid color")
	ErrInvalidRegion      = errors.New("invalid region")
	ErrInvalidDimensions  = errors.New("invalid dimensions")
	ErrShrinkNotAllowed   = errors.New("canvas cannot shrink")
	ErrStorageUnavailable = errors.New("canvas storage unavailable")
	ErrResizeFailed       = errors.New("resize failed")
)
