// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log builds slog.Logger instances for keykit and its command line
// tool.
//
// A logger is assembled from functional options or from a Config, which is
// the form found in the tool's configuration file:
//
//	logger := log.New(
//		log.WithLevel("debug"),
//		log.WithFormat("json"),
//	)
//
// Output goes to standard error so that key material written to standard
// output stays machine readable.
//
// # Conventions
//
//   - Format attribute keys in lower camelCase.
//   - Prefer longer keys over abbreviations (e.g., "error" over "err").
//   - Capitalize the first letter of every log message.
//   - Do not end log messages with punctuation.
//   - Never log key material or passphrases.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default configuration values for a new logger.
const (
	DefaultLevel     = slog.LevelInfo
	DefaultAddSource = false
	DefaultFormat    = FormatText
)

// Format defines the log output format.
type Format uint8

const (
	FormatText Format = iota // Human-readable key=value pairs.
	FormatJSON               // One JSON object per line.
)

// String returns the lower-case name of the format.
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// Config is the serializable logger configuration.
type Config struct {
	Level     string `json:"level,omitempty" yaml:"level,omitempty"`
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	AddSource bool   `json:"addSource,omitempty" yaml:"addSource,omitempty"`
}

// Validate reports an error if the level or format cannot be parsed. Empty
// fields are valid and select the defaults.
func (c Config) Validate() error {
	if c.Level != "" {
		if _, err := ParseLevel(c.Level); err != nil {
			return err
		}
	}
	if c.Format != "" {
		if _, err := ParseFormat(c.Format); err != nil {
			return err
		}
	}
	return nil
}

// Options converts c into logger options.
func (c Config) Options() []Option {
	return []Option{
		WithLevel(c.Level),
		WithFormat(c.Format),
		WithAddSource(c.AddSource),
	}
}

type config struct {
	level     slog.Level
	addSource bool
	format    Format
	writer    io.Writer
}

// Option defines a function that modifies the logger configuration.
type Option func(*config)

// WithLevel sets the minimum log level. It accepts a slog.Level or a string
// recognized by ParseLevel. Invalid values leave the level unchanged.
func WithLevel(v any) Option {
	return func(c *config) {
		switch t := v.(type) {
		case slog.Level:
			c.level = t
		case string:
			if level, err := ParseLevel(t); err == nil {
				c.level = level
			}
		}
	}
}

// WithFormat sets the output format. It accepts a Format or a string
// recognized by ParseFormat. Invalid values leave the format unchanged.
func WithFormat(v any) Option {
	return func(c *config) {
		switch t := v.(type) {
		case Format:
			c.format = t
		case string:
			if format, err := ParseFormat(t); err == nil {
				c.format = format
			}
		}
	}
}

// WithAddSource includes the source position of the log call in each
// record.
func WithAddSource(add bool) Option {
	return func(c *config) {
		c.addSource = add
	}
}

// WithWriter sets the output destination. A nil writer is ignored.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writer = w
		}
	}
}

// New creates a logger. Without options it logs at info level in text
// format to os.Stderr.
func New(opts ...Option) *slog.Logger {
	c := config{
		level:     DefaultLevel,
		addSource: DefaultAddSource,
		format:    DefaultFormat,
		writer:    os.Stderr,
	}
	for _, opt := range opts {
		opt(&c)
	}
	o := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.addSource,
	}
	if c.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(c.writer, o))
	}
	return slog.New(slog.NewTextHandler(c.writer, o))
}

// Discard returns a logger that drops every record. Library packages use it
// when the caller does not supply a logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a string into a slog.Level, ignoring case. It accepts
// every string produced by slog.Level.MarshalText, including offsets such as
// "error-8".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ParseFormat converts "text" or "json" into a Format, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return 0, fmt.Errorf("invalid log format %q", s)
	}
}
