// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

// Provider hands out the current configuration and applies admin updates.
// The *Config returned by Get is treated as immutable; updates swap the
// whole pointer under the lock.
type Provider struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

// NewProvider loads the file at path and wraps it.
func NewProvider(path string) (*Provider, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Provider{path: path, cfg: cfg}, nil
}

// Get returns the current configuration snapshot.
func (p *Provider) Get() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Path returns the backing file path.
func (p *Provider) Path() string {
	return p.path
}

// Reload re-reads the backing file, replacing the live configuration when it
// parses and validates.
func (p *Provider) Reload() error {
	cfg, err := Load(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// ErrNoUpdates is returned when an admin update carries no fields.
var ErrNoUpdates = fmt.Errorf("no config values provided")

// Apply validates a partial admin update, persists the merged document and
// swaps it in. Returns the new configuration.
func (p *Provider) Apply(update datatypes.ConfigUpdate) (*Config, error) {
	if update.Model == nil && update.Temperature == nil && update.SystemPrompt == nil &&
		update.Language == nil && update.Theme == nil {
		return nil, ErrNoUpdates
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.cfg.Clone()
	if update.Model != nil {
		model := strings.TrimSpace(*update.Model)
		if model == "" {
			return nil, fmt.Errorf("model is empty")
		}
		if !contains(next.LLM.Models, model) {
			next.LLM.Models = append(next.LLM.Models, model)
		}
		next.LLM.Model = model
	}
	if update.Temperature != nil {
		if *update.Temperature < 0 || *update.Temperature > 2 {
			return nil, fmt.Errorf("temperature must be between 0.0 and 2.0")
		}
		next.LLM.Temperature = *update.Temperature
	}
	if update.SystemPrompt != nil {
		prompt := strings.TrimSpace(*update.SystemPrompt)
		if prompt == "" {
			return nil, fmt.Errorf("system_prompt is empty")
		}
		next.SystemPrompt = prompt
	}
	if update.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*update.Language))
		if lang != "ja" && lang != "en" {
			return nil, fmt.Errorf("language must be one of: ja, en")
		}
		if !contains(next.User.LanguageOptions, lang) {
			next.User.LanguageOptions = append(next.User.LanguageOptions, lang)
		}
		next.User.Language = lang
	}
	if update.Theme != nil {
		name := strings.TrimSpace(*update.Theme)
		if name == "" {
			return nil, fmt.Errorf("theme is empty")
		}
		theme := next.themeByName(name)
		if theme == nil {
			names := make([]string, 0, len(next.ConsoleUI.Themes))
			for _, t := range next.ConsoleUI.Themes {
				names = append(names, t.Name)
			}
			return nil, fmt.Errorf("theme must be one of: %s", strings.Join(names, ", "))
		}
		next.ConsoleUI.Theme = theme.Name
		next.ConsoleUI.ThemeColor = theme.ThemeColor
		next.ConsoleUI.UserColor = theme.UserColor
		next.ConsoleUI.ToolColor = theme.ToolColor
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := Save(p.path, next); err != nil {
		return nil, err
	}
	p.cfg = next
	return next, nil
}
