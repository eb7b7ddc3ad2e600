// Package snapshot persists the video records of one run as a dated JSON file
// and reads them back.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/youtube-video-stats/common"
	"github.com/researchaccelerator-hub/youtube-video-stats/model"
	"github.com/rs/zerolog/log"
)

const filePerm = 0o666

// ErrSnapshotNotFound is returned by Load when no snapshot exists for the
// requested channel and day.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store reads and writes snapshots in a single directory.
type Store struct {
	dir string
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used to date new snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a Store rooted at dir. The directory is not created.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the snapshot file for handle on the UTC calendar day of day.
func (s *Store) Path(handle string, day time.Time) string {
	name := fmt.Sprintf("%s_%s.json", handle, day.UTC().Format(common.DateLayout))
	return filepath.Join(s.dir, name)
}

// Write stores records as today's snapshot for handle and returns its path.
// An existing snapshot for the same day is replaced.
func (s *Store) Write(records []model.VideoRecord, handle string) (string, error) {
	if err := checkHandle(handle); err != nil {
		return "", err
	}
	path := s.Path(handle, s.now())

	f, err := createAtomic(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to create snapshot")
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	if err := Encode(f, records); err != nil {
		f.abort()
		log.Error().Err(err).Str("path", path).Msg("Failed to encode snapshot")
		return "", fmt.Errorf("failed to encode snapshot %s: %w", path, err)
	}
	if err := f.commit(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to commit snapshot")
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("record_count", len(records)).Msg("Wrote snapshot")
	return path, nil
}

// Load reads the snapshot for handle on day.
func (s *Store) Load(handle string, day time.Time) ([]model.VideoRecord, error) {
	if err := checkHandle(handle); err != nil {
		return nil, err
	}
	path := s.Path(handle, day)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Error().Str("path", path).Msg("Snapshot not found")
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to decode snapshot")
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return records, nil
}

// Encode writes records as an indented JSON array. Non-ASCII text and HTML
// characters are written literally. A nil slice is written as [].
func Encode(w io.Writer, records []model.VideoRecord) error {
	if records == nil {
		records = []model.VideoRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	_, err := w.Write(unescapeLineSeparators(buf.Bytes()))
	return err
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes encoding/json
// always emits back into the literal runes. An escaped backslash followed by
// the text u2028 is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if i+6 <= len(b) && b[i+1] == 'u' {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Copy the escape pair so its second byte is never read as a new escape.
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// Decode reads a JSON array of records.
func Decode(r io.Reader) ([]model.VideoRecord, error) {
	var records []model.VideoRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errors.New("snapshot is not a JSON array")
	}
	return records, nil
}

func checkHandle(handle string) error {
	if handle == "" {
		return errors.New("channel handle must not be empty")
	}
	if strings.ContainsAny(handle, `/\`) || handle == "." || handle == ".." {
		return fmt.Errorf("channel handle %q cannot be used in a file name", handle)
	}
	return nil
}
