package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, decodes, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	v := newViper(resolvedPath)
	exists := true
	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}
		exists = false
	}

	cfg := decode(v, resolvedPath)
	warnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}
	if !exists {
		warnings = append([]Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}, warnings...)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   exists,
	}, nil
}

// newViper builds an isolated YAML-backed viper instance with defaults registered.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	applyDefaults(v)
	return v
}

// decode materializes a Config from viper values.
func decode(v *viper.Viper, path string) Config {
	return Config{
		EnableDonk:    v.GetBool(KeyEnableDonk),
		EnableVoices:  v.GetBool(KeyEnableVoices),
		VoiceSelected: strings.TrimSpace(v.GetString(KeyVoiceSelected)),
		AssetsDir:     resolveAssetsDir(v.GetString(KeyAssetsDir), path),
		Narrator: NarratorConfig{
			StartRunning: v.GetBool(KeyStartRunning),
		},
		Audio: AudioConfig{
			Sink: strings.TrimSpace(v.GetString(KeyAudioSink)),
		},
		Notify: NotifyConfig{
			Desktop: v.GetBool(KeyNotifyDesktop),
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(KeyNotifyBackend))),
			AppName: strings.TrimSpace(v.GetString(KeyNotifyAppName)),
		},
	}
}

// isNotExist reports a missing config file in either viper or fs form.
func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
