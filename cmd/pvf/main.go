// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/pvf/main.go
// Summary: Terminal PDF viewer entry point.
// Usage: pvf [flags] <document.pdf>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	"pvf/app"
	"pvf/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("pvf", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default: ~/.config/pvf/pvf.json)")
	protocol := fs.String("protocol", "", "force image protocol: kitty or halfblocks")
	workers := fs.Int("workers", 0, "render worker count (overrides config)")
	logPath := fs.String("log", "", "log file path (default: ~/.config/pvf/pvf.log)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one document, got %d", fs.NArg())
	}
	docPath := fs.Arg(0)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.FilePath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if *protocol != "" {
		cfg.Protocol = *protocol
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *logPath != "" {
		cfg.LogFile = *logPath
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}
	log.Printf("pvf starting: doc=%s workers=%d protocol=%q", docPath, cfg.Workers, cfg.Protocol)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}

	viewer, err := app.New(cfg, docPath, app.NewTcellScreenDriver(screen))
	if err != nil {
		return err
	}
	if err := viewer.Run(); err != nil {
		return err
	}
	log.Println("pvf stopped cleanly")
	return nil
}

// setupLogging sends the stdlib logger to a file; the terminal belongs to
// the viewer.
func setupLogging(cfg config.Config) error {
	path := cfg.LogFile
	if path == "" {
		var err error
		if path, err = config.DefaultLogPath(); err != nil {
			// No config dir: log into the void rather than the screen.
			log.SetOutput(io.Discard)
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	log.SetOutput(f)
	return nil
}
