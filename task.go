package synapse

import "context"

// Task is a background unit of work. Run receives its own ItemService which
// is not shared with any other task.
type Task struct {
	Name string
	Run  func(ctx context.Context, items ItemService) error
}

// TaskRunner executes tasks independently of the request that scheduled
// them. Callers only learn that a task was accepted; there is no completion
// signal and no cancellation.
type TaskRunner interface {
	// Submit schedules task. Returns EUNAVAILABLE when the runner cannot
	// accept more work.
	Submit(task Task) error
}
