// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package logging builds the root structured logger.
//
// Records are JSON on stdout. When a log file is configured they are also
// written to a size-rotated file through lumberjack.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the root logger.
type Options struct {
	App   string
	Debug bool

	// File enables the rotated file sink when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New returns the root logger and a closer for the file sink.
// The closer is a no-op when no file is configured.
func New(options Options) (*slog.Logger, io.Closer) {
	return NewWithWriter(os.Stdout, options)
}

// NewWithWriter is [New] with an explicit console writer.
func NewWithWriter(console io.Writer, options Options) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if options.Debug {
		level = slog.LevelDebug
	}

	var closer io.Closer = nopCloser{}
	writer := console

	if options.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   options.File,
			MaxSize:    max(1, options.MaxSizeMB),
			MaxBackups: max(0, options.MaxBackups),
			MaxAge:     max(0, options.MaxAgeDays),
			Compress:   options.Compress,
		}
		writer = io.MultiWriter(console, rotator)
		closer = rotator
	}

	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
	if options.App != "" {
		logger = logger.With(slog.String("app", options.App))
	}
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
