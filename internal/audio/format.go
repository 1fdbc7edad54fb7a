// Package audio owns error-cue playback: one session at a time, chained
// source file → WAV decode stage → PulseAudio playback stream.
package audio

// Output format every session is rendered in.
const (
	SampleRate = 44100
	Channels   = 2
	BitDepth   = 16
)
