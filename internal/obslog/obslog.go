// Package obslog provides structured logging channels for the
// analyzer's collaborators, grounded on the channeled-logger pattern:
// one slog.Logger per concern, correlation ids threaded through
// batches and init runs rather than a single flat logger.
package obslog

import (
	"io"
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"
)

// Channel names a logical subsystem within the analyzer.
type Channel string

const (
	ChannelSystem   Channel = "system"
	ChannelAnalyzer Channel = "analyzer"
	ChannelBackend  Channel = "backend"
	ChannelDelegate Channel = "delegate"
	ChannelSearch   Channel = "search"
	ChannelCache    Channel = "cache"
	ChannelCodec    Channel = "codec"
)

var allChannels = []Channel{
	ChannelSystem, ChannelAnalyzer, ChannelBackend,
	ChannelDelegate, ChannelSearch, ChannelCache, ChannelCodec,
}

// Logger fans out to a per-channel slog.Logger, all sharing one
// underlying handler and writer.
type Logger struct {
	channels map[Channel]*slog.Logger
}

// New builds a Logger writing JSON records to w (os.Stdout if nil) at
// level.
func New(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	base := slog.New(handler)

	l := &Logger{channels: make(map[Channel]*slog.Logger, len(allChannels))}
	for _, ch := range allChannels {
		l.channels[ch] = base.With(slog.String("channel", string(ch)))
	}
	return l
}

// Channel returns the logger for ch, falling back to the system
// channel for an unregistered value.
func (l *Logger) Channel(ch Channel) *slog.Logger {
	if logger, ok := l.channels[ch]; ok {
		return logger
	}
	return l.channels[ChannelSystem]
}

func (l *Logger) System() *slog.Logger   { return l.channels[ChannelSystem] }
func (l *Logger) Analyzer() *slog.Logger { return l.channels[ChannelAnalyzer] }
func (l *Logger) Backend() *slog.Logger  { return l.channels[ChannelBackend] }
func (l *Logger) Delegate() *slog.Logger { return l.channels[ChannelDelegate] }
func (l *Logger) Search() *slog.Logger   { return l.channels[ChannelSearch] }
func (l *Logger) Cache() *slog.Logger    { return l.channels[ChannelCache] }
func (l *Logger) Codec() *slog.Logger    { return l.channels[ChannelCodec] }

// NewCorrelationID mints a ulid-based correlation id, monotonic within
// a process, for tagging one init run or one processEvents batch
// across every log line it produces.
func NewCorrelationID() string {
	return ulid.Make().String()
}

// WithCorrelation returns a channel logger with a "corr" attribute set,
// so every line from one batch or init run can be grepped together.
func (l *Logger) WithCorrelation(ch Channel, correlationID string) *slog.Logger {
	return l.Channel(ch).With(slog.String("corr", correlationID))
}

// Discard is a Logger that drops every record, used where a caller
// declines to configure logging.
func Discard() *Logger {
	return New(io.Discard, slog.LevelError+1)
}
