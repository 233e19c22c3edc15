// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads, validates and persists config.yaml, the single
// authoritative configuration file of the core. Missing required keys stop
// the process at startup; runtime updates go through Provider and are
// written back to the same file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Avatar identifies the acting persona.
type Avatar struct {
	Name     string `yaml:"name" validate:"required"`
	Fullname string `yaml:"fullname"`
}

// User describes the operator and the console language.
type User struct {
	Name            string   `yaml:"name" validate:"required"`
	Language        string   `yaml:"language" validate:"required,oneof=ja en"`
	LanguageOptions []string `yaml:"language_options" validate:"omitempty,dive,oneof=ja en"`
}

// LLM configures the cognition provider.
type LLM struct {
	Model              string    `yaml:"model" validate:"required"`
	Models             []string  `yaml:"models" validate:"omitempty,dive,required"`
	Temperature        float64   `yaml:"temperature" validate:"gte=0,lte=2"`
	TemperaturePresets []float64 `yaml:"temperature_presets" validate:"omitempty,dive,gte=0,lte=2"`
	DailyTokenLimit    int       `yaml:"daily_token_limit"`
}

// Loop configures the autonomous cycle cadence.
type Loop struct {
	NotifyResult   *bool   `yaml:"notify_result"`
	ResultInterval float64 `yaml:"result_interval"`
}

// Theme is one selectable console color scheme.
type Theme struct {
	Name       string `yaml:"name" validate:"required"`
	ThemeColor string `yaml:"theme_color" validate:"required"`
	UserColor  string `yaml:"user_color" validate:"required"`
	ToolColor  string `yaml:"tool_color" validate:"required"`
}

// ConsoleUI carries the console's presentation settings. The core only
// stores and serves them; rendering is the console's job.
type ConsoleUI struct {
	Theme      string  `yaml:"theme"`
	ThemeColor string  `yaml:"theme_color"`
	UserColor  string  `yaml:"user_color"`
	ToolColor  string  `yaml:"tool_color"`
	Themes     []Theme `yaml:"themes" validate:"omitempty,dive"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Port int `yaml:"port" validate:"omitempty,gte=1,lte=65535"`
}

// Config is the full configuration document.
type Config struct {
	Avatar         Avatar    `yaml:"avatar" validate:"required"`
	User           User      `yaml:"user" validate:"required"`
	LLM            LLM       `yaml:"llm" validate:"required"`
	SystemPrompt   string    `yaml:"system_prompt" validate:"required"`
	AvatarSpace    string    `yaml:"avatar_space"`
	SessionTTL     int       `yaml:"session_ttl" validate:"omitempty,gte=1"`
	GoalComplete   string    `yaml:"goal_complete" validate:"omitempty,oneof=manual auto"`
	AutonomousLoop Loop      `yaml:"autonomous_loop"`
	ConsoleUI      ConsoleUI `yaml:"console_ui"`
	Server         Server    `yaml:"server"`
}

var validate = validator.New()

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags plus the cross-field constraints the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !contains(c.LLM.Models, c.LLM.Model) {
		return fmt.Errorf("invalid config: llm.model %q is not in llm.models", c.LLM.Model)
	}
	if !contains(c.User.LanguageOptions, c.User.Language) {
		return fmt.Errorf("invalid config: user.language %q is not in user.language_options", c.User.Language)
	}
	if c.ConsoleUI.Theme != "" && len(c.ConsoleUI.Themes) > 0 && c.themeByName(c.ConsoleUI.Theme) == nil {
		return fmt.Errorf("invalid config: console_ui.theme %q is not defined in console_ui.themes", c.ConsoleUI.Theme)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.User.Language = strings.ToLower(strings.TrimSpace(c.User.Language))
	if len(c.User.LanguageOptions) == 0 && c.User.Language != "" {
		c.User.LanguageOptions = []string{c.User.Language}
	}
	if len(c.LLM.Models) == 0 && c.LLM.Model != "" {
		c.LLM.Models = []string{c.LLM.Model}
	}
	if len(c.LLM.TemperaturePresets) == 0 {
		c.LLM.TemperaturePresets = []float64{c.LLM.Temperature}
	}
	if c.LLM.DailyTokenLimit == 0 {
		c.LLM.DailyTokenLimit = 100000
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 3600
	}
	if c.GoalComplete == "" {
		c.GoalComplete = "manual"
	}
	if c.AutonomousLoop.ResultInterval == 0 {
		c.AutonomousLoop.ResultInterval = 3
	}
	if c.AutonomousLoop.NotifyResult == nil {
		t := true
		c.AutonomousLoop.NotifyResult = &t
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
}

func (c *Config) themeByName(name string) *Theme {
	for i := range c.ConsoleUI.Themes {
		if strings.EqualFold(c.ConsoleUI.Themes[i].Name, name) {
			return &c.ConsoleUI.Themes[i]
		}
	}
	return nil
}

// ResultInterval returns the post-progress cycle delay as a duration.
func (c *Config) ResultInterval() time.Duration {
	return time.Duration(c.AutonomousLoop.ResultInterval * float64(time.Second))
}

// Notify reports whether conversation-only completions are echoed to the
// dialogue pane.
func (c *Config) Notify() bool {
	return c.AutonomousLoop.NotifyResult == nil || *c.AutonomousLoop.NotifyResult
}

// WorkspaceRoot resolves the avatar workspace path: environment variable
// first, then the config value, then ~/Avatar/space.
func (c *Config) WorkspaceRoot() string {
	if env := os.Getenv("AVATAR_SPACE"); env != "" {
		return env
	}
	if c.AvatarSpace != "" {
		return c.AvatarSpace
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Avatar", "space")
}

// Clone returns a deep copy safe to mutate without affecting the live config.
func (c *Config) Clone() *Config {
	out := *c
	out.User.LanguageOptions = append([]string(nil), c.User.LanguageOptions...)
	out.LLM.Models = append([]string(nil), c.LLM.Models...)
	out.LLM.TemperaturePresets = append([]float64(nil), c.LLM.TemperaturePresets...)
	out.ConsoleUI.Themes = append([]Theme(nil), c.ConsoleUI.Themes...)
	if c.AutonomousLoop.NotifyResult != nil {
		b := *c.AutonomousLoop.NotifyResult
		out.AutonomousLoop.NotifyResult = &b
	}
	return &out
}

// Save writes the document back to path with a full overwrite.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
