package logging

import (
	"cmp"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/docker/turnwire/pkg/paths"
)

// DefaultFileName is the debug log's name inside the data directory.
const DefaultFileName = "turnwire.debug.log"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the process-wide slog logger.
//
// Without debug, logs are discarded. With debug, they go to a RotatingFile at
// path, or at <data dir>/turnwire.debug.log when path is empty. The returned
// Closer closes the log file.
func Setup(debug bool, path string) (io.Closer, error) {
	if !debug {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nopCloser{}, nil
	}

	path = cmp.Or(strings.TrimSpace(path), filepath.Join(paths.GetDataDir(), DefaultFileName))
	logFile, err := NewRotatingFile(path)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return logFile, nil
}
