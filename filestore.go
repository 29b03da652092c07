package synapse

import "context"

// FileStore persists uploaded binaries.
type FileStore interface {
	// Save writes data under a path derived from filename and returns the
	// location the file can be referenced by. Write failures are EFILESTORE.
	Save(ctx context.Context, filename string, data []byte) (location string, err error)
}

// Recognizer extracts text from an uploaded image. It is the pluggable
// step where real OCR would go.
type Recognizer interface {
	Recognize(ctx context.Context, filename string, data []byte) (string, error)
}
