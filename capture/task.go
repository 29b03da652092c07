package capture

import (
	"context"

	"github.com/fwojciec/synapse"
)

// URLTask wraps an asynchronous URL capture as a task.
func URLTask(svc *Service, url string) synapse.Task {
	return synapse.Task{
		Name: "capture " + url,
		Run: func(ctx context.Context, items synapse.ItemService) error {
			_, _, err := svc.Capture(ctx, items, url)
			return err
		},
	}
}

// ImageTask wraps an image note capture as a task. data must not be
// modified after the task is submitted.
func ImageTask(svc *ImageService, filename string, data []byte) synapse.Task {
	return synapse.Task{
		Name: "capture-image " + filename,
		Run: func(ctx context.Context, items synapse.ItemService) error {
			_, err := svc.CaptureImage(ctx, items, filename, data)
			return err
		},
	}
}
