package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"rig-studio/internal/timeline"
)

// ErrAnimationNotFound is returned when no stored animation matches the
// requested filename.
var ErrAnimationNotFound = errors.New("animation not found")

// AnimationMeta is the listing entry for one stored animation.
type AnimationMeta struct {
	Filename   string `json:"filename"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	AudioFile  string `json:"audio_file,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	NumCurves  int    `json:"num_curves"`
}

// Store persists animation documents as JSON files in a directory. Filenames
// are derived from the animation name; saving under an existing name replaces
// the file but preserves its creation timestamp.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create animation dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	dashRuns    = regexp.MustCompile(`[-\s]+`)
)

// sanitizeFilename converts an animation name into a safe file stem.
func sanitizeFilename(name string) string {
	safe := unsafeChars.ReplaceAllString(strings.ToLower(name), "")
	safe = strings.Trim(dashRuns.ReplaceAllString(safe, "-"), "-")
	if safe == "" {
		return "untitled"
	}
	return safe
}

func (s *Store) pathFor(stem string) string {
	if !strings.HasSuffix(stem, ".json") {
		stem += ".json"
	}
	return filepath.Join(s.dir, filepath.Base(stem))
}

// Save writes the document to disk and returns its file stem. An existing
// document with the same name keeps its created_at.
func (s *Store) Save(doc timeline.Document) (string, error) {
	stem := sanitizeFilename(doc.Name)
	now := time.Now().Format(time.RFC3339)
	if prev, err := s.Load(stem); err == nil && prev.CreatedAt != "" {
		doc.CreatedAt = prev.CreatedAt
	} else if doc.CreatedAt == "" {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode animation: %w", err)
	}
	if err := os.WriteFile(s.pathFor(stem), data, 0o644); err != nil {
		return "", fmt.Errorf("write animation: %w", err)
	}
	return stem, nil
}

// Load reads a document by file stem. A missing file is ErrAnimationNotFound;
// a corrupt file is timeline.ErrBadDocument.
func (s *Store) Load(filename string) (timeline.Document, error) {
	data, err := os.ReadFile(s.pathFor(filename))
	if errors.Is(err, os.ErrNotExist) {
		return timeline.Document{}, ErrAnimationNotFound
	}
	if err != nil {
		return timeline.Document{}, fmt.Errorf("read animation: %w", err)
	}
	return timeline.ParseDocument(data)
}

// Delete removes a stored animation by file stem.
func (s *Store) Delete(filename string) error {
	err := os.Remove(s.pathFor(filename))
	if errors.Is(err, os.ErrNotExist) {
		return ErrAnimationNotFound
	}
	return err
}

// List returns metadata for every stored animation, newest updated first.
// Corrupt files are skipped rather than failing the listing.
func (s *Store) List() ([]AnimationMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list animations: %w", err)
	}
	metas := make([]AnimationMeta, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		doc, err := timeline.ParseDocument(data)
		if err != nil {
			continue
		}
		metas = append(metas, AnimationMeta{
			Filename:   strings.TrimSuffix(e.Name(), ".json"),
			Name:       doc.Name,
			DurationMs: doc.DurationMs,
			AudioFile:  doc.AudioFile,
			CreatedAt:  doc.CreatedAt,
			UpdatedAt:  doc.UpdatedAt,
			NumCurves:  len(doc.Curves),
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].UpdatedAt > metas[j].UpdatedAt })
	return metas, nil
}
