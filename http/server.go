package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/synapse"
	"github.com/fwojciec/synapse/capture"
	"github.com/gin-gonic/gin"
)

// Server defaults.
const (
	DefaultMaxUploadSize   = 32 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

// NoResultsMessage is returned by search when nothing matches.
const NoResultsMessage = "No memories found matching that query."

var ginMode sync.Once

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the capture and search API. Fields must be set before Open.
type Server struct {
	ln     net.Listener
	server *http.Server
	router *gin.Engine

	// Bind address for the server's listener.
	Addr string

	// Maximum accepted size of an uploaded image.
	MaxUploadSize int64

	// How long Close waits for in-flight requests.
	ShutdownTimeout time.Duration

	Logger  *slog.Logger
	Items   synapse.ItemStore
	Tasks   synapse.TaskRunner
	Capture *capture.Service
	Images  *capture.ImageService
	Health  Pinger
	Metrics http.Handler
}

// NewServer returns a new instance of Server with its routes registered.
func NewServer() *Server {
	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	s := &Server{
		router:          gin.New(),
		MaxUploadSize:   DefaultMaxUploadSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		Logger:          slog.New(slog.DiscardHandler),
	}
	s.server = &http.Server{Handler: s.router}

	s.router.Use(s.recovery, s.logRequest)

	s.router.POST("/capture", s.handleCapture)
	s.router.POST("/capture-image", s.handleCaptureImage)
	s.router.GET("/search", s.handleSearch)
	s.router.GET("/items/:id", s.handleItem)
	s.router.POST("/api/v1/ingest", s.handleIngest)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", s.handleMetrics)

	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Open begins listening on the bind address and serves in the background.
func (s *Server) Open() (err error) {
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("http server", "err", err)
		}
	}()
	return nil
}

// URL returns the local base URL of the running server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	addr := s.ln.Addr().(*net.TCPAddr)
	host := "localhost"
	if ip := addr.IP; ip != nil && !ip.IsUnspecified() {
		host = ip.String()
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(addr.Port))
}

// Close gracefully shuts down the server, waiting up to ShutdownTimeout for
// in-flight requests.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleCapture handles "POST /capture". With sync=true the pipeline runs
// inline, otherwise it is scheduled in the background.
func (s *Server) handleCapture(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		s.Error(c, synapse.Errorf(synapse.EINVALID, "url query parameter required"))
		return
	}

	if inline, _ := strconv.ParseBool(c.Query("sync")); inline {
		s.captureSync(c, url)
		return
	}
	s.scheduleCapture(c, url)
}

// handleIngest handles "POST /api/v1/ingest" with a form-encoded url.
func (s *Server) handleIngest(c *gin.Context) {
	url := strings.TrimSpace(c.PostForm("url"))
	if url == "" {
		s.Error(c, synapse.Errorf(synapse.EINVALID, "url form field required"))
		return
	}
	s.scheduleCapture(c, url)
}

func (s *Server) scheduleCapture(c *gin.Context, url string) {
	if err := s.Tasks.Submit(capture.URLTask(s.Capture, url)); err != nil {
		s.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "in progress",
		"message": "Capture scheduled.",
		"url":     url,
	})
}

func (s *Server) captureSync(c *gin.Context, url string) {
	ctx := c.Request.Context()
	session, err := s.Items.OpenSession(ctx)
	if err != nil {
		s.Error(c, err)
		return
	}
	defer session.Close()

	item, outcome, err := s.Capture.CaptureSync(ctx, session, url)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": synapse.ErrorMessage(err),
			"item":  item,
		})
		return
	}

	status := http.StatusCreated
	if outcome == capture.OutcomeSkipped {
		status = http.StatusOK
	}
	c.JSON(status, item)
}

// handleCaptureImage handles "POST /capture-image" with a multipart "file".
func (s *Server) handleCaptureImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadSize)

	fh, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || c.Request.ContentLength > s.MaxUploadSize {
		s.Error(c, synapse.Errorf(synapse.ETOOLARGE, "upload exceeds the %d byte limit", s.MaxUploadSize))
		return
	} else if err != nil {
		s.Error(c, synapse.Errorf(synapse.EINVALID, "file upload required: %v", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.Error(c, synapse.Errorf(synapse.EINVALID, "reading upload: %v", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.Error(c, synapse.Errorf(synapse.EINVALID, "reading upload: %v", err))
		return
	}

	if err := s.Tasks.Submit(capture.ImageTask(s.Images, fh.Filename, data)); err != nil {
		s.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":   "in progress",
		"message":  "Image capture scheduled.",
		"filename": fh.Filename,
	})
}

// handleSearch handles "GET /search". An empty q matches every item.
func (s *Server) handleSearch(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	session, err := s.Items.OpenSession(ctx)
	if err != nil {
		s.Error(c, err)
		return
	}
	defer session.Close()

	items, err := session.FindItems(ctx, filter)
	if err != nil {
		s.Error(c, err)
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": NoResultsMessage})
		return
	}
	c.JSON(http.StatusOK, items)
}

func parseFilter(c *gin.Context) (synapse.ItemFilter, error) {
	filter := synapse.ItemFilter{Query: c.Query("q")}

	if v := c.Query("type"); v != "" {
		typ := synapse.ItemType(strings.ToUpper(v))
		if !typ.Valid() {
			return filter, synapse.Errorf(synapse.EINVALID, "invalid item type %q", v)
		}
		filter.Type = &typ
	}

	var err error
	if filter.Limit, err = nonNegative(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = nonNegative(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func nonNegative(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, synapse.Errorf(synapse.EINVALID, "invalid %s %q", name, v)
	}
	return n, nil
}

// handleItem handles "GET /items/:id".
func (s *Server) handleItem(c *gin.Context) {
	ctx := c.Request.Context()
	session, err := s.Items.OpenSession(ctx)
	if err != nil {
		s.Error(c, err)
		return
	}
	defer session.Close()

	item, err := session.FindItemByID(ctx, c.Param("id"))
	if err != nil {
		s.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.Health != nil {
		if err := s.Health.Ping(c.Request.Context()); err != nil {
			s.Logger.Error("health check", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	s.Metrics.ServeHTTP(c.Writer, c.Request)
}

// Error writes err as a JSON error response with a status matching its
// code. Internal errors are logged and reported without details.
func (s *Server) Error(c *gin.Context, err error) {
	code, message := synapse.ErrorCode(err), synapse.ErrorMessage(err)
	if code == synapse.EINTERNAL || code == synapse.ESTORE || code == synapse.EFILESTORE {
		s.Logger.Error("http error", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		message = "Internal error."
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ErrorStatusCode(code), gin.H{"error": message})
}

var codes = map[string]int{
	synapse.EINVALID:     http.StatusBadRequest,
	synapse.EFETCH:       http.StatusBadRequest,
	synapse.ENOTFOUND:    http.StatusNotFound,
	synapse.ECONFLICT:    http.StatusConflict,
	synapse.ETOOLARGE:    http.StatusRequestEntityTooLarge,
	synapse.EUNAVAILABLE: http.StatusServiceUnavailable,
}

// ErrorStatusCode returns the HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

func (s *Server) recovery(c *gin.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.Logger.Error("panic serving request", "path", c.Request.URL.Path, "panic", p)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error."})
		}
	}()
	c.Next()
}

func (s *Server) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()

	attrs := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
		"client_ip", c.ClientIP(),
	}
	if q := c.Request.URL.RawQuery; q != "" {
		attrs = append(attrs, "query", q)
	}
	if len(c.Errors) > 0 {
		attrs = append(attrs, "errors", c.Errors.Errors())
	}
	if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
		s.Logger.Debug("http request", attrs...)
		return
	}
	s.Logger.Info("http request", attrs...)
}
