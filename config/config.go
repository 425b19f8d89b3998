// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Viewer configuration: pipeline tunables loaded from a JSON file
//          with defaults for anything absent.

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config carries every pipeline tunable. Fields absent from the file keep
// their defaults, and out-of-range values are reset to the defaults on load:
// zero or negative ones, except BGRadius, where only a negative value is
// reset and zero is kept.
type Config struct {
	// Workers is the render pool size (render parallelism).
	Workers int `json:"workers"`
	// EncodeWorkers is the encode pool size, typically 1-2.
	EncodeWorkers int `json:"encode_workers"`

	// L1BudgetBytes bounds resident rasterized page memory.
	L1BudgetBytes int `json:"l1_budget_bytes"`
	// L2BudgetBytes bounds resident encoded frame memory.
	L2BudgetBytes int `json:"l2_budget_bytes"`
	// QueueMax bounds the prefetch queue.
	QueueMax int `json:"queue_max"`
	// EncodePendingMax bounds in-flight encodes.
	EncodePendingMax int `json:"encode_pending_max"`

	// LeadMax caps the directional prefetch depth.
	LeadMax int `json:"lead_max"`
	// BGRadius bounds background prefetch distance from the cursor.
	BGRadius int `json:"bg_radius"`
	// PlanBudget caps tasks emitted per scheduler plan.
	PlanBudget int `json:"plan_budget"`

	// CellPxW/CellPxH are the terminal cell pixel dimensions. They are read
	// once when the viewer starts; a resize does not re-query them.
	CellPxW int `json:"cell_px_w"`
	CellPxH int `json:"cell_px_h"`

	// Protocol forces a terminal image protocol: "", "kitty" or
	// "halfblocks". Empty means auto-detect.
	Protocol string `json:"protocol"`

	// LogFile receives the process log; empty means pvf.log in the config
	// directory.
	LogFile string `json:"log_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:          4,
		EncodeWorkers:    1,
		L1BudgetBytes:    512 * 1024 * 1024,
		L2BudgetBytes:    64 * 1024 * 1024,
		QueueMax:         32,
		EncodePendingMax: 8,
		LeadMax:          3,
		BGRadius:         4,
		PlanBudget:       8,
		CellPxW:          10,
		CellPxH:          20,
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. A malformed file is an error; a missing one is not.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	d := Default()
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	if c.EncodeWorkers < 1 {
		c.EncodeWorkers = d.EncodeWorkers
	}
	if c.L1BudgetBytes < 1 {
		c.L1BudgetBytes = d.L1BudgetBytes
	}
	if c.L2BudgetBytes < 1 {
		c.L2BudgetBytes = d.L2BudgetBytes
	}
	if c.QueueMax < 1 {
		c.QueueMax = d.QueueMax
	}
	if c.EncodePendingMax < 1 {
		c.EncodePendingMax = d.EncodePendingMax
	}
	if c.LeadMax < 1 {
		c.LeadMax = d.LeadMax
	}
	if c.BGRadius < 0 {
		c.BGRadius = d.BGRadius
	}
	if c.PlanBudget < 1 {
		c.PlanBudget = d.PlanBudget
	}
	if c.CellPxW < 1 {
		c.CellPxW = d.CellPxW
	}
	if c.CellPxH < 1 {
		c.CellPxH = d.CellPxH
	}
	switch c.Protocol {
	case "", "kitty", "halfblocks":
	default:
		c.Protocol = ""
	}
}
