package canvas

import "context"

// Storage is the durable medium holding the packed pixel buffer. Storage
// implementations are not required to be safe for concurrent use; Store
// serializes every call.
type Storage interface {
	// Size returns the current length of the buffer in bytes.
	Size(ctx context.Context) (int64, error)
	// Load returns the whole buffer.
	Load(ctx context.Context) ([]byte, error)
	ReadByteAt(ctx context.Context, off int64) (byte, error)
	WriteAt(ctx context.Context, p []byte, off int64) error
	// Replace swaps the whole buffer for buf. Readers observe either the
	// old buffer or buf, never a mix of the two.
	Replace(ctx context.Context, buf []byte) error
}
