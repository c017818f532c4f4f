package sheet

import (
	"context"
	"strings"
	"sync"
)

// DisplayRequest asks the host to show an image to players.
type DisplayRequest struct {
	// Sheet is the id of the sheet the request came from.
	Sheet string

	// Method is one of the display method names (window, journalEntry,
	// artScene, anyScene).
	Method string

	// Subject is the image's stable identifier.
	Subject string

	// Source is the image's media source.
	Source string

	// TileID is the target tile for the anyScene method.
	TileID string

	// Recipients are the users the image is shown to. Empty means everyone.
	Recipients []string
}

// Displayer shows images to players. Display may block.
type Displayer interface {
	Display(ctx context.Context, req DisplayRequest) error
}

// DisplayFunc adapts a function to Displayer.
type DisplayFunc func(ctx context.Context, req DisplayRequest) error

// Display implements Displayer.
func (f DisplayFunc) Display(ctx context.Context, req DisplayRequest) error {
	return f(ctx, req)
}

// Logger is the logging surface of this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// LogDisplayer logs display requests and remembers them.
type LogDisplayer struct {
	logger Logger

	mu       sync.Mutex
	requests []DisplayRequest
}

// NewLogDisplayer creates a displayer that logs at info level.
func NewLogDisplayer(logger Logger) *LogDisplayer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &LogDisplayer{logger: logger}
}

// Display implements Displayer.
func (d *LogDisplayer) Display(_ context.Context, req DisplayRequest) error {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	d.logger.Info("display image",
		"sheet", req.Sheet,
		"method", req.Method,
		"subject", req.Subject,
		"source", req.Source,
		"tile", req.TileID,
		"recipients", strings.Join(req.Recipients, ","))
	return nil
}

// Requests returns the requests seen so far.
func (d *LogDisplayer) Requests() []DisplayRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DisplayRequest, len(d.requests))
	copy(out, d.requests)
	return out
}
