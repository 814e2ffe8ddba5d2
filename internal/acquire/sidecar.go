// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Sidecar is the metadata record written next to every downloaded PDF.
type Sidecar struct {
	PaperID      string    `yaml:"paper_id"`
	Title        string    `yaml:"title"`
	Authors      []string  `yaml:"authors,omitempty"`
	Year         int       `yaml:"year,omitempty"`
	DOI          string    `yaml:"doi,omitempty"`
	Source       string    `yaml:"source"`
	PDFURL       string    `yaml:"pdf_url"`
	MatchedTitle string    `yaml:"matched_title,omitempty"`
	Score        float64   `yaml:"score"`
	FilePath     string    `yaml:"file_path"`
	FileSize     int64     `yaml:"file_size"`
	Attempts     int       `yaml:"attempts"`
	DownloadedAt time.Time `yaml:"download_time"`
}

// writeSidecar writes s to path through a temporary file and rename.
func writeSidecar(s Sidecar, path string) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meta-*.tmp")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing metadata: %w", firstErr(werr, cerr))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// ReadSidecar reads a metadata record.
func ReadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Sidecar
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	return &s, nil
}

func newSidecar(q types.PaperQuery, c types.Candidate, score float64, path string, size int64, attempts int) Sidecar {
	return Sidecar{
		PaperID:      q.ID(),
		Title:        q.Title,
		Authors:      q.Authors,
		Year:         q.Year,
		DOI:          q.EffectiveDOI(),
		Source:       c.SourceID,
		PDFURL:       c.Locator,
		MatchedTitle: c.Title,
		Score:        score,
		FilePath:     path,
		FileSize:     size,
		Attempts:     attempts,
		DownloadedAt: time.Now().UTC(),
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
