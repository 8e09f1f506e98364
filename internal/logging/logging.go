// Package logging configures the default structured logger shared by
// piebot's CLI entry points (cmd/piebotrun, cmd/piebotreplay): a single
// Init call, run before flag parsing, so a -log-level flag or the
// PIEBOT_LOG_LEVEL env var can set the log level before anything else
// in the process logs a line.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the default slog logger from the PIEBOT_LOG_LEVEL env
// var and an optional -log-level / --log-level CLI flag (flag wins). It
// returns args with that flag stripped so the caller's own flag parser
// doesn't choke on it.
func Init(args []string) []string {
	levelStr := os.Getenv("PIEBOT_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}

	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "--log-level=") {
			levelStr = strings.TrimPrefix(arg, "--log-level=")
			continue
		}
		if strings.HasPrefix(arg, "-log-level=") {
			levelStr = strings.TrimPrefix(arg, "-log-level=")
			continue
		}
		if arg == "-log-level" || arg == "--log-level" {
			if i+1 < len(args) {
				levelStr = args[i+1]
				i++
			}
			continue
		}

		remaining = append(remaining, arg)
	}

	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return remaining
}
