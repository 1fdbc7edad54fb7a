// Package sound resolves which asset file an error notification should play.
package sound

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rbright/narrator/internal/config"
)

// DonkFile is the fixed error sound inside the assets directory.
const DonkFile = "error-sound.wav"

var (
	// ErrAssetMissing means the selected voice folder is empty or unreadable.
	ErrAssetMissing = errors.New("voice asset missing")
	// ErrSilent means the preferences select no sound at all.
	ErrSilent = errors.New("sound disabled")
)

// Voice is one voice folder with its playable file count.
type Voice struct {
	Name  string
	Path  string
	Files int
}

// Selector picks asset paths under one assets directory.
type Selector struct {
	assetsDir string
	intn      func(int) int
}

// NewSelector creates a selector rooted at assetsDir.
func NewSelector(assetsDir string) *Selector {
	return &Selector{assetsDir: assetsDir, intn: rand.IntN}
}

// AssetsDir returns the root the selector reads from.
func (s *Selector) AssetsDir() string {
	return s.assetsDir
}

// Pick resolves prefs to an asset path.
func (s *Selector) Pick(prefs config.Preferences) (string, error) {
	switch prefs.Mode {
	case config.ModeDonk:
		return s.PickDefault(), nil
	case config.ModeVoice:
		return s.PickForVoice(prefs.VoiceName)
	default:
		return "", ErrSilent
	}
}

// PickDefault returns the fixed donk asset path.
func (s *Selector) PickDefault() string {
	return filepath.Join(s.assetsDir, DonkFile)
}

// PickForVoice returns a uniformly random file from the voice folder.
func (s *Selector) PickForVoice(voiceName string) (string, error) {
	dir := s.VoiceDir(voiceName)
	files, err := regularFiles(dir)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrAssetMissing, dir, err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s has no files", ErrAssetMissing, dir)
	}
	return filepath.Join(dir, files[s.intn(len(files))]), nil
}

// VoiceDir maps a display voice name to its folder: lower-cased, spaces removed.
func (s *Selector) VoiceDir(voiceName string) string {
	return filepath.Join(s.assetsDir, FolderName(voiceName))
}

// FolderName normalizes a voice display name to its folder name.
func FolderName(voiceName string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(voiceName), " ", ""))
}

// Voices lists voice folders under the assets directory, sorted by name.
func (s *Selector) Voices() ([]Voice, error) {
	entries, err := os.ReadDir(s.assetsDir)
	if err != nil {
		return nil, fmt.Errorf("read assets dir %s: %w", s.assetsDir, err)
	}

	voices := make([]Voice, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.assetsDir, entry.Name())
		files, err := regularFiles(dir)
		if err != nil {
			continue
		}
		voices = append(voices, Voice{Name: entry.Name(), Path: dir, Files: len(files)})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
	return voices, nil
}

// regularFiles returns the names of non-directory entries in dir, sorted.
func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}
