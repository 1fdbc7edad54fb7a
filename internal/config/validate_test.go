package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty assets dir", mutate: func(c *Config) { c.AssetsDir = " " }, wantErr: KeyAssetsDir},
		{name: "voices without voice", mutate: func(c *Config) {
			c.EnableVoices = true
			c.VoiceSelected = ""
		}, wantErr: KeyVoiceSelected},
		{name: "desktop without app name", mutate: func(c *Config) {
			c.Notify.Desktop = true
			c.Notify.AppName = ""
		}, wantErr: KeyNotifyAppName},
		{name: "unknown notice backend", mutate: func(c *Config) {
			c.Notify.Backend = "smoke-signals"
		}, wantErr: KeyNotifyBackend},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnModeConflictAndSilence(t *testing.T) {
	cfg := Default()
	cfg.EnableVoices = true
	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "voices take precedence")

	cfg.EnableDonk = false
	cfg.EnableVoices = false
	warnings, err = Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "silent")
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(KeyEnableDonk, "false")
	require.NoError(t, err)
	require.Equal(t, false, v)

	v, err = ParseValue(KeyVoiceSelected, "  Ice Man ")
	require.NoError(t, err)
	require.Equal(t, "Ice Man", v)

	_, err = ParseValue(KeyEnableVoices, "maybe")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expects a boolean")

	_, err = ParseValue("volume", "11")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown config key")
}

func TestConfigValueCoversEveryKey(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		_, err := cfg.Value(key)
		require.NoError(t, err, key)
	}
	_, err := cfg.Value("nope")
	require.Error(t, err)
}

func TestResolvePreferencesExclusivity(t *testing.T) {
	tests := []struct {
		name         string
		donk, voices bool
		want         Preferences
		wantConflict bool
	}{
		{name: "donk only", donk: true, want: Preferences{Mode: ModeDonk}},
		{name: "voices only", voices: true, want: Preferences{Mode: ModeVoice, VoiceName: "Maverick"}},
		{name: "both forces voice", donk: true, voices: true, want: Preferences{Mode: ModeVoice, VoiceName: "Maverick"}, wantConflict: true},
		{name: "neither is silent", want: Preferences{Mode: ModeSilent}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, conflict := ResolvePreferences(tc.donk, tc.voices, "Maverick")
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.wantConflict, conflict)
		})
	}
}
