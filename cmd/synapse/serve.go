package main

import (
	"github.com/fwojciec/synapse/capture"
	"github.com/fwojciec/synapse/fs"
	synapsehttp "github.com/fwojciec/synapse/http"
	synslog "github.com/fwojciec/synapse/slog"
	"github.com/fwojciec/synapse/task"
)

// Run executes the serve command. It blocks until the context is cancelled,
// then stops accepting requests and waits for queued captures to finish.
func (c *ServeCmd) Run(deps *Dependencies) error {
	logger := deps.Logger

	runner := task.NewRunner(deps.Items,
		task.WithWorkers(c.Workers),
		task.WithQueueSize(c.QueueSize),
		task.WithLogger(logger),
		task.WithRecorder(deps.Metrics),
	)
	deps.Metrics.RegisterQueueDepth(runner.Len)

	server := synapsehttp.NewServer()
	server.Addr = c.Addr
	server.Logger = logger
	server.Items = deps.Items
	server.Tasks = runner
	server.Capture = deps.Capture
	server.Images = &capture.ImageService{
		Files:    synslog.NewLoggingFileStore(fs.NewFileStore(c.UploadDir), logger),
		Recorder: deps.Metrics,
	}
	server.Health = deps.DB
	server.Metrics = deps.Metrics.Handler()

	if err := server.Open(); err != nil {
		_ = runner.Close()
		return err
	}
	logger.Info("listening", "url", server.URL(), "workers", c.Workers, "queue_size", c.QueueSize)

	<-deps.Ctx.Done()
	logger.Info("shutting down")

	if err := server.Close(); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	if err := runner.Close(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
