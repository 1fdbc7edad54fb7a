package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.AssetsDir) == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyAssetsDir)
	}
	if cfg.EnableVoices && strings.TrimSpace(cfg.VoiceSelected) == "" {
		return nil, fmt.Errorf("%s must not be empty when %s=true", KeyVoiceSelected, KeyEnableVoices)
	}
	if cfg.Notify.Desktop && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("%s must not be empty when %s=true", KeyNotifyAppName, KeyNotifyDesktop)
	}
	switch cfg.Notify.Backend {
	case BackendBeeep, BackendDBus, BackendHyprland:
	default:
		return nil, fmt.Errorf("%s must be one of %q, %q, %q; got %q",
			KeyNotifyBackend, BackendBeeep, BackendDBus, BackendHyprland, cfg.Notify.Backend)
	}

	if cfg.EnableDonk && cfg.EnableVoices {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"%s and %s are both true; voices take precedence", KeyEnableDonk, KeyEnableVoices,
		)})
	}
	if !cfg.EnableDonk && !cfg.EnableVoices {
		warnings = append(warnings, Warning{Message: "no sound mode enabled; errors will be silent"})
	}

	return warnings, nil
}

type keyKind int

const (
	kindString keyKind = iota + 1
	kindBool
)

var knownKeys = map[string]keyKind{
	KeyEnableDonk:    kindBool,
	KeyEnableVoices:  kindBool,
	KeyVoiceSelected: kindString,
	KeyAssetsDir:     kindString,
	KeyStartRunning:  kindBool,
	KeyAudioSink:     kindString,
	KeyNotifyDesktop: kindBool,
	KeyNotifyBackend: kindString,
	KeyNotifyAppName: kindString,
}

// Keys returns every recognized key in stable order.
func Keys() []string {
	return []string{
		KeyEnableDonk,
		KeyEnableVoices,
		KeyVoiceSelected,
		KeyAssetsDir,
		KeyStartRunning,
		KeyAudioSink,
		KeyNotifyDesktop,
		KeyNotifyBackend,
		KeyNotifyAppName,
	}
}

// ParseValue converts raw CLI input into the typed value stored for key.
func ParseValue(key string, raw string) (any, error) {
	kind, ok := knownKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects a boolean, got %q", key, raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// Value returns the current value of key from cfg.
func (c Config) Value(key string) (any, error) {
	switch key {
	case KeyEnableDonk:
		return c.EnableDonk, nil
	case KeyEnableVoices:
		return c.EnableVoices, nil
	case KeyVoiceSelected:
		return c.VoiceSelected, nil
	case KeyAssetsDir:
		return c.AssetsDir, nil
	case KeyStartRunning:
		return c.Narrator.StartRunning, nil
	case KeyAudioSink:
		return c.Audio.Sink, nil
	case KeyNotifyDesktop:
		return c.Notify.Desktop, nil
	case KeyNotifyBackend:
		return c.Notify.Backend, nil
	case KeyNotifyAppName:
		return c.Notify.AppName, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}
