package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultSuggestionLimit = 10

// PanelSettings holds the tunables that ship with the resource rather than
// the environment.
type PanelSettings struct {
	// AutoRefreshTabs lists the tabs that poll the host while active.
	AutoRefreshTabs []string `yaml:"auto_refresh_tabs"`
	// SuggestionLimit caps the label suggestion list.
	SuggestionLimit int `yaml:"suggestion_limit"`
	// Blacklist entries merged with the blacklist the host sends on open.
	Blacklist []string `yaml:"blacklist"`
}

// DefaultPanelSettings mirrors the behaviour of the stock panel.
func DefaultPanelSettings() PanelSettings {
	return PanelSettings{
		AutoRefreshTabs: []string{"listings", "buy-orders"},
		SuggestionLimit: defaultSuggestionLimit,
	}
}

// LoadPanelSettings reads a YAML settings file. A missing file yields the
// defaults; a malformed one is an error.
func LoadPanelSettings(path string) (PanelSettings, error) {
	settings := DefaultPanelSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read panel settings: %w", err)
	}

	var parsed PanelSettings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return settings, fmt.Errorf("parse panel settings: %w", err)
	}

	if parsed.AutoRefreshTabs != nil {
		settings.AutoRefreshTabs = parsed.AutoRefreshTabs
	}
	if parsed.SuggestionLimit > 0 {
		settings.SuggestionLimit = parsed.SuggestionLimit
	}
	settings.Blacklist = parsed.Blacklist
	return settings, nil
}

// AutoRefreshes reports whether the given tab polls the host while active.
func (ps PanelSettings) AutoRefreshes(tab string) bool {
	for _, t := range ps.AutoRefreshTabs {
		if t == tab {
			return true
		}
	}
	return false
}
