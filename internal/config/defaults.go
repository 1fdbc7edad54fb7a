package config

import "github.com/spf13/viper"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		EnableDonk:    true,
		EnableVoices:  false,
		VoiceSelected: "Maverick",
		AssetsDir:     DefaultAssetsDir(),
		Narrator:      NarratorConfig{StartRunning: true},
		Audio:         AudioConfig{Sink: ""},
		Notify: NotifyConfig{
			Desktop: true,
			Backend: BackendBeeep,
			AppName: "narrator",
		},
	}
}

// applyDefaults registers Default() values so unset keys fall back to them.
func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyEnableDonk, d.EnableDonk)
	v.SetDefault(KeyEnableVoices, d.EnableVoices)
	v.SetDefault(KeyVoiceSelected, d.VoiceSelected)
	v.SetDefault(KeyAssetsDir, d.AssetsDir)
	v.SetDefault(KeyStartRunning, d.Narrator.StartRunning)
	v.SetDefault(KeyAudioSink, d.Audio.Sink)
	v.SetDefault(KeyNotifyDesktop, d.Notify.Desktop)
	v.SetDefault(KeyNotifyBackend, d.Notify.Backend)
	v.SetDefault(KeyNotifyAppName, d.Notify.AppName)
}
