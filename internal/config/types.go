// Package config resolves, loads, validates, watches, and defaults narrator configuration.
package config

// Config is the fully materialized runtime configuration used by narrator.
type Config struct {
	EnableDonk    bool
	EnableVoices  bool
	VoiceSelected string
	AssetsDir     string
	Narrator      NarratorConfig
	Audio         AudioConfig
	Notify        NotifyConfig
}

// NarratorConfig controls controller startup behavior.
type NarratorConfig struct {
	StartRunning bool
}

// AudioConfig selects the output sink. Empty means the server default.
type AudioConfig struct {
	Sink string
}

// NotifyConfig controls user-visible desktop notices.
type NotifyConfig struct {
	Desktop bool
	// Backend is "beeep" (portable), "dbus" (busctl, replaces the previous notice),
	// or "hyprland" (hyprctl overlay).
	Backend string
	AppName string
}

// Notice backends.
const (
	BackendBeeep    = "beeep"
	BackendDBus     = "dbus"
	BackendHyprland = "hyprland"
)

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

// Recognized configuration keys as they appear in config.yaml.
const (
	KeyEnableDonk    = "enable_donk"
	KeyEnableVoices  = "enable_voices"
	KeyVoiceSelected = "voice_selected"
	KeyAssetsDir     = "assets_dir"
	KeyStartRunning  = "narrator.start_running"
	KeyAudioSink     = "audio.sink"
	KeyNotifyDesktop = "notify.desktop"
	KeyNotifyBackend = "notify.backend"
	KeyNotifyAppName = "notify.app_name"
)
