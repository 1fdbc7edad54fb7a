package config

// Mode is the effective sound mode. Donk and Voice are mutually exclusive.
type Mode string

const (
	ModeSilent Mode = "silent"
	ModeDonk   Mode = "donk"
	ModeVoice  Mode = "voice"
)

// ConflictMessage is surfaced when both exclusive modes were requested.
const ConflictMessage = "Cannot enable both Donk and Voices simultaneously. Donks have been disabled."

// Preferences is the value object the controller reads fresh for every decision.
type Preferences struct {
	Mode      Mode
	VoiceName string
}

// ResolvePreferences applies mode exclusivity. When both modes are requested
// Voice wins and conflict is true.
func ResolvePreferences(enableDonk, enableVoices bool, voiceName string) (Preferences, bool) {
	switch {
	case enableDonk && enableVoices:
		return Preferences{Mode: ModeVoice, VoiceName: voiceName}, true
	case enableVoices:
		return Preferences{Mode: ModeVoice, VoiceName: voiceName}, false
	case enableDonk:
		return Preferences{Mode: ModeDonk}, false
	default:
		return Preferences{Mode: ModeSilent}, false
	}
}

// Preferences returns the effective preferences for cfg.
func (c Config) Preferences() Preferences {
	prefs, _ := ResolvePreferences(c.EnableDonk, c.EnableVoices, c.VoiceSelected)
	return prefs
}
