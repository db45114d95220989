package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/log"
)

// Logger builds a logfmt logger writing to w at the given level, the
// same handler construction the reference command-line tooling uses so
// a captured log file greps the same way.
func Logger(w io.Writer, lvl slog.Level) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl))
}

// GuestWriter adapts a Logger into an io.Writer for a guest's stdout/
// stderr file descriptors, printing text verbatim and falling back to a
// hex dump for anything that isn't printable.
type GuestWriter struct {
	Name string
	Log  log.Logger
}

func isPrintableText(b []byte) bool {
	for _, c := range b {
		if (c < 0x20 || c >= 0x7F) && c != '\n' && c != '\t' {
			return false
		}
	}
	return true
}

func (w *GuestWriter) Write(b []byte) (int, error) {
	if isPrintableText(b) {
		w.Log.Info(w.Name, "text", string(b))
	} else {
		w.Log.Info(w.Name, "data", fmt.Sprintf("%x", b))
	}
	return len(b), nil
}

// HexU64 lazily formats an address for structured log fields.
type HexU64 uint64

func (v HexU64) String() string { return fmt.Sprintf("%016x", uint64(v)) }

func (v HexU64) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
