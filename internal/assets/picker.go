package assets

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// audioExtensions are the container types the mixer accepts as background
// tracks.
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".aac":  {},
	".ogg":  {},
	".opus": {},
	".flac": {},
	".wav":  {},
}

// Picker selects background tracks from a directory of audio files.
type Picker struct {
	dir string
}

// NewPicker builds a Picker over the configured background-audio directory.
func NewPicker(dir string) *Picker {
	return &Picker{dir: dir}
}

// Pick returns a random audio file from the directory. The second return is
// false when no usable track exists; an empty library is an expected state,
// not an error, and the caller degrades to single-input encoding.
func (p *Picker) Pick() (string, bool) {
	tracks := p.Tracks()
	if len(tracks) == 0 {
		return "", false
	}
	return tracks[rand.IntN(len(tracks))], true
}

// Tracks lists every usable audio file in the directory, sorted by the
// directory order os.ReadDir provides (lexical).
func (p *Picker) Tracks() []string {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil
	}

	var tracks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := audioExtensions[ext]; !ok {
			continue
		}
		tracks = append(tracks, filepath.Join(p.dir, entry.Name()))
	}
	return tracks
}
