package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// UserConfig holds per-user CLI preferences from ~/.fishtrack/config.json.
// It never carries database credentials; those stay in config.yaml or the
// environment.
type UserConfig struct {
	// DefaultVessels narrows CLI jobs when --vessels is not given, ahead of
	// pipeline.vessels
	DefaultVessels []int64 `json:"default_vessels,omitempty"`
}

// UserConfigHandler reads and writes one user config file
type UserConfigHandler struct {
	configPath string
}

func NewUserConfigHandler() (*UserConfigHandler, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewUserConfigHandlerAt(filepath.Join(homeDir, ".fishtrack", "config.json"))
}

func NewUserConfigHandlerAt(configPath string) (*UserConfigHandler, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &UserConfigHandler{configPath: configPath}, nil
}

// Load returns an empty config when the file does not exist yet
func (h *UserConfigHandler) Load() (*UserConfig, error) {
	data, err := os.ReadFile(h.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config %s: %w", h.configPath, err)
	}
	return &cfg, nil
}

// Save replaces the file through a rename so a crashed write never leaves a
// truncated config behind
func (h *UserConfigHandler) Save(cfg *UserConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(h.configPath), ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write user config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.configPath); err != nil {
		return fmt.Errorf("failed to replace user config: %w", err)
	}
	return nil
}

// SetDefaultVessels stores the vessel filter sorted and without duplicates.
// Ids must be positive.
func (h *UserConfigHandler) SetDefaultVessels(vesselIDs []int64) error {
	for _, id := range vesselIDs {
		if id <= 0 {
			return fmt.Errorf("invalid vessel id %d", id)
		}
	}

	cfg, err := h.Load()
	if err != nil {
		return err
	}
	ids := slices.Clone(vesselIDs)
	slices.Sort(ids)
	cfg.DefaultVessels = slices.Compact(ids)
	return h.Save(cfg)
}

func (h *UserConfigHandler) ClearDefaultVessels() error {
	cfg, err := h.Load()
	if err != nil {
		return err
	}
	cfg.DefaultVessels = nil
	return h.Save(cfg)
}

// GetConfigPath returns the path to the user config file
func (h *UserConfigHandler) GetConfigPath() string {
	return h.configPath
}
