package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// DefaultFilePermissions is the mode of a newly created journal.
const DefaultFilePermissions = 0o600

// Repository records events.
type Repository interface {
	Append(ctx context.Context, event Event) error
}

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal is closed")

// FileRepository appends events to a file. It is safe for concurrent use.
type FileRepository struct {
	// file is the open journal.
	file *os.File
	// encoder writes CBOR items to file.
	encoder *cbor.Encoder
	// closed is set by Close.
	closed bool
	// mu serializes writes.
	mu sync.Mutex
}

// Open opens path for appending, creating it when missing.
func Open(path string) (*FileRepository, error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, DefaultFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &FileRepository{
		file:    f,
		encoder: newEncoder(f),
	}, nil
}

// Append writes one event.
func (r *FileRepository) Append(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if err := r.encoder.Encode(event); err != nil {
		return fmt.Errorf("encode journal event: %w", err)
	}

	return nil
}

// Close syncs and closes the file. Calling it again is a no-op.
func (r *FileRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	return errors.Join(r.file.Sync(), r.file.Close())
}

// Discard drops every event. It stands in when no journal path is configured.
type Discard struct{}

// Append does nothing.
func (Discard) Append(context.Context, Event) error {
	return nil
}

// Reader streams events back from a journal file.
type Reader struct {
	// file is the open journal.
	file *os.File
	// decoder reads CBOR items from file.
	decoder *cbor.Decoder
}

// NewReader opens path for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &Reader{
		file:    f,
		decoder: newDecoder(f),
	}, nil
}

// Next returns the next event, or io.EOF at the end. A record cut short by
// a crash is reported as io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	var event Event
	if err := r.decoder.Decode(&event); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}

		return Event{}, fmt.Errorf("decode journal event: %w", err)
	}

	return event, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
