package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/synapse"
	"github.com/fwojciec/synapse/ahocorasick"
	"github.com/fwojciec/synapse/bloom"
	"github.com/fwojciec/synapse/capture"
	"github.com/fwojciec/synapse/goquery"
	"github.com/fwojciec/synapse/htmltomarkdown"
	synapsehttp "github.com/fwojciec/synapse/http"
	"github.com/fwojciec/synapse/prometheus"
	"github.com/fwojciec/synapse/readability"
	synslog "github.com/fwojciec/synapse/slog"
	"github.com/fwojciec/synapse/sqlite"
	"github.com/fwojciec/synapse/trafilatura"
	"github.com/joho/godotenv"
)

// Bloom filter sizing for the capture dedup prefilter.
const (
	seenCapacity = 100_000
	seenFPRate   = 0.001
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by the item store.
	DB *sqlite.DB

	// Metrics shared by all components.
	Metrics *prometheus.Metrics
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("synapse"),
		kong.Description("Capture web pages and images into a searchable second brain."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'synapse --help' to see available commands")
	}
	switch args[0] {
	case "help", "--help", "-h":
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, cli.LogLevel)
	if err != nil {
		return err
	}
	deps.Logger = logger

	m.DB = sqlite.NewDB(cli.DB)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintln(stderr, "Hint: Set SYNAPSE_DB to use a different database path")
		return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
	}
	defer m.Close()

	extractor, err := newExtractor(cli.Extractor)
	if err != nil {
		return err
	}

	seen := bloom.NewFilter(seenCapacity, seenFPRate)
	if err := m.DB.ForEachURL(ctx, seen.Add); err != nil {
		return fmt.Errorf("failed to load captured URLs: %w", err)
	}

	m.Metrics = prometheus.NewMetrics()
	m.Metrics.RegisterItemCount(seen.EstimatedCount)

	var fetcher synapse.Fetcher = synapsehttp.NewFetcher(
		synapsehttp.WithTimeout(cli.FetchTimeout),
		synapsehttp.WithLimiter(synapsehttp.NewHostLimiter(cli.FetchRate)),
	)
	fetcher = prometheus.NewFetcher(fetcher, m.Metrics)

	deps.DB = m.DB
	deps.Metrics = m.Metrics
	deps.Items = synslog.NewLoggingItemStore(m.DB, logger)
	deps.Capture = &capture.Service{
		Fetcher:    synslog.NewLoggingFetcher(fetcher, logger),
		Extractor:  synslog.NewLoggingExtractor(extractor, logger),
		Classifier: ahocorasick.NewDefaultClassifier(),
		Seen:       seen,
		Recorder:   m.Metrics,
	}

	return kongCtx.Run(deps)
}

// newExtractor returns the extractor for the named extraction mode.
func newExtractor(mode string) (synapse.Extractor, error) {
	switch mode {
	case "", "text":
		return goquery.NewExtractor(), nil
	case "readability":
		return readability.NewExtractor(), nil
	case "markdown":
		return readability.NewExtractor(readability.WithConverter(htmltomarkdown.NewConverter())), nil
	case "trafilatura":
		return trafilatura.NewExtractor(), nil
	case "trafilatura-markdown":
		return trafilatura.NewExtractor(trafilatura.WithConverter(htmltomarkdown.NewConverter())), nil
	}
	return nil, synapse.Errorf(synapse.EINVALID, "unknown extractor %q", mode)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, synapse.Errorf(synapse.EINVALID, "invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
