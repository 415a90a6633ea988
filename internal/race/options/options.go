// Package options parses the engine settings from the TSAN_OPTIONS
// environment variable.
//
// The variable holds key=value pairs separated by spaces, commas or colons:
//
//	TSAN_OPTIONS="halt_on_error=1 exitcode=3 log_level=debug"
package options

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-hclog"
)

// EnvVar is the environment variable read by FromEnv.
const EnvVar = "TSAN_OPTIONS"

// Options are the engine settings.
type Options struct {
	// HaltOnError exits after the first report.
	HaltOnError bool `mapstructure:"halt_on_error"`

	// ExitCode replaces a zero exit status when warnings were reported.
	ExitCode int `mapstructure:"exitcode"`

	// ReportMutexBugs enables mutex and fiber misuse reports.
	ReportMutexBugs bool `mapstructure:"report_mutex_bugs"`

	// ReportDestroyLocked enables reports for destroying a locked mutex.
	ReportDestroyLocked bool `mapstructure:"report_destroy_locked"`

	// LogLevel is the hclog level of engine diagnostics.
	LogLevel string `mapstructure:"log_level"`

	// LogPath is "stderr", "stdout" or a file that reports and diagnostics
	// are appended to.
	LogPath string `mapstructure:"log_path"`
}

// Default returns the settings used when TSAN_OPTIONS is unset.
func Default() Options {
	return Options{
		ExitCode:            66,
		ReportMutexBugs:     true,
		ReportDestroyLocked: true,
		LogLevel:            "warn",
		LogPath:             "stderr",
	}
}

// Parse decodes s on top of the defaults. Unknown keys and values of the
// wrong type are errors.
func Parse(s string) (Options, error) {
	opts := Default()

	raw := make(map[string]any)
	for _, field := range strings.FieldsFunc(s, isSeparator) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return Default(), fmt.Errorf("option %q: expected key=value", field)
		}
		raw[key] = value
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &opts,
	})
	if err != nil {
		return Default(), fmt.Errorf("failed to create options decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Default(), fmt.Errorf("invalid %s: %w", EnvVar, err)
	}

	if hclog.LevelFromString(opts.LogLevel) == hclog.NoLevel {
		return Default(), fmt.Errorf("invalid %s: unknown log_level %q", EnvVar, opts.LogLevel)
	}
	return opts, nil
}

// FromEnv parses TSAN_OPTIONS.
func FromEnv() (Options, error) {
	return Parse(os.Getenv(EnvVar))
}

// Level returns the hclog level named by LogLevel.
func (o Options) Level() hclog.Level {
	return hclog.LevelFromString(o.LogLevel)
}

// OpenLog opens the destination named by LogPath. The returned close
// function is a no-op for the standard streams.
func (o Options) OpenLog() (io.Writer, func() error, error) {
	switch o.LogPath {
	case "", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(o.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, func() error { return nil }, fmt.Errorf("failed to open log_path: %w", err)
	}
	return f, f.Close, nil
}

func isSeparator(r rune) bool {
	return r == ' ' || r == ',' || r == ':' || r == '\t' || r == '\n'
}
