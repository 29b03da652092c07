package mock

import (
	"context"

	"github.com/fwojciec/synapse"
)

var (
	_ synapse.FileStore  = (*FileStore)(nil)
	_ synapse.Recognizer = (*Recognizer)(nil)
	_ synapse.TaskRunner = (*TaskRunner)(nil)
)

// FileStore is a mock implementation of synapse.FileStore.
type FileStore struct {
	SaveFn func(ctx context.Context, filename string, data []byte) (string, error)
}

func (s *FileStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	return s.SaveFn(ctx, filename, data)
}

// Recognizer is a mock implementation of synapse.Recognizer.
type Recognizer struct {
	RecognizeFn func(ctx context.Context, filename string, data []byte) (string, error)
}

func (r *Recognizer) Recognize(ctx context.Context, filename string, data []byte) (string, error) {
	return r.RecognizeFn(ctx, filename, data)
}

// TaskRunner is a mock implementation of synapse.TaskRunner.
type TaskRunner struct {
	SubmitFn func(task synapse.Task) error
}

func (r *TaskRunner) Submit(task synapse.Task) error {
	return r.SubmitFn(task)
}
