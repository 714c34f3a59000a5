package analyzer

import (
	"log/slog"
	"os"

	"github.com/AtRiskMedia/keystone/clock"
	"github.com/AtRiskMedia/keystone/internal/obslog"
	"github.com/AtRiskMedia/keystone/search"
)

// Config carries the analyzer's configuration options. The analyzer
// core does no environment or file I/O; callers assemble Config
// themselves (the demo binary under cmd/keystone loads these values
// from viper).
type Config struct {
	// UserIdentifier is stamped on events created via the reference Client.
	UserIdentifier string
	// CreateSearchIndex enables building and maintaining the keyword index.
	CreateSearchIndex bool
	// KeywordExtractor overrides the default Text-value extractor.
	KeywordExtractor search.Extractor
	// Logger receives structured log lines. Defaults to a JSON logger on
	// stdout at Info level.
	Logger *obslog.Logger
	// Clock supplies "now". Defaults to wall time.
	Clock clock.Clock
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = obslog.New(os.Stdout, slog.LevelInfo)
	}
	if c.Clock == nil {
		c.Clock = clock.System{}
	}
	return c
}
