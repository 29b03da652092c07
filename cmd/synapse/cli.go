package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/synapse"
	"github.com/fwojciec/synapse/capture"
	"github.com/fwojciec/synapse/prometheus"
	"github.com/fwojciec/synapse/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	DB      *sqlite.DB
	Items   synapse.ItemStore
	Capture *capture.Service
	Metrics *prometheus.Metrics
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB           string        `name:"db" env:"SYNAPSE_DB" default:"synapse.db" help:"SQLite database path"`
	LogLevel     string        `name:"log-level" env:"SYNAPSE_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	Extractor    string        `env:"SYNAPSE_EXTRACTOR" default:"text" enum:"text,readability,markdown,trafilatura,trafilatura-markdown" help:"Content extraction mode"`
	FetchTimeout time.Duration `name:"fetch-timeout" env:"SYNAPSE_FETCH_TIMEOUT" default:"5s" help:"Timeout for fetching a URL"`
	FetchRate    float64       `name:"fetch-rate" env:"SYNAPSE_FETCH_RATE" default:"1" help:"Maximum fetches per second per host"`

	Serve   ServeCmd   `cmd:"" help:"Run the capture and search API server"`
	Capture CaptureCmd `cmd:"" help:"Capture a URL and print the stored item"`
	Search  SearchCmd  `cmd:"" help:"Search captured items"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr      string `env:"SYNAPSE_ADDR" default:":8000" help:"Listen address"`
	UploadDir string `name:"upload-dir" env:"SYNAPSE_UPLOAD_DIR" default:"uploads" help:"Directory for uploaded images"`
	Workers   int    `env:"SYNAPSE_WORKERS" default:"4" help:"Background capture workers"`
	QueueSize int    `name:"queue-size" env:"SYNAPSE_QUEUE_SIZE" default:"256" help:"Capture tasks that may wait for a worker"`
}

// CaptureCmd is the "capture" subcommand.
type CaptureCmd struct {
	URL string `arg:"" help:"URL to capture"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query  string `arg:"" optional:"" help:"Case-insensitive substring to look for; empty lists everything"`
	Type   string `short:"t" help:"Only items of this type (ARTICLE, VIDEO, PRODUCT, NOTE)"`
	Limit  int    `short:"n" default:"20" help:"Maximum number of results (0 for no limit)"`
	Offset int    `help:"Number of results to skip"`
	Full   bool   `help:"Show full item content"`
}
