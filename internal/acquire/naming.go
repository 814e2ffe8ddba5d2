// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

const (
	pdfDir      = "pdfs"
	metadataDir = "metadata"

	maxTitleSlug = 80
)

// Stem returns the deterministic file stem for q:
// "<surname>[_et_al]_<year>_<title-slug>_<hash>". The title slug is ASCII,
// at most 80 bytes, and cut at a word boundary; the hash is the first 8 hex
// digits of the SHA-256 of the query identity, so two distinct papers never
// share a stem even when their slugs collide.
func Stem(q types.PaperQuery) string {
	parts := []string{strings.TrimSuffix(stemPrefix(q), "_")}
	if q.Year > 0 {
		parts = append(parts, strconv.Itoa(q.Year))
	}
	if t := truncateSlug(slugify(q.Title), maxTitleSlug); t != "" {
		parts = append(parts, t)
	}
	sum := sha256.Sum256([]byte(q.ID()))
	parts = append(parts, hex.EncodeToString(sum[:4]))
	return strings.Join(parts, "_")
}

// PDFPath returns the artifact path for q under root.
func PDFPath(root string, q types.PaperQuery) string {
	return filepath.Join(root, pdfDir, Stem(q)+".pdf")
}

// SidecarPath returns the metadata path for q under root.
func SidecarPath(root string, q types.PaperQuery) string {
	return filepath.Join(root, metadataDir, Stem(q)+".yaml")
}

// FindExisting returns the artifact already stored under root for a paper
// with the same identity as q. Years may differ by up to window, and a query
// without a year matches a stored artifact of any year.
func FindExisting(root string, q types.PaperQuery, window int) (string, os.FileInfo, bool) {
	for _, y := range identityYears(root, q, window) {
		alt := q
		alt.Year = y
		p := PDFPath(root, alt)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, info, true
		}
	}
	return "", nil, false
}

// identityYears lists the years whose stems may hold q, nearest first.
func identityYears(root string, q types.PaperQuery, window int) []int {
	years := []int{q.Year}
	if q.Year > 0 {
		for d := 1; d <= window; d++ {
			years = append(years, q.Year-d, q.Year+d)
		}
		return append(years, 0)
	}

	prefix := stemPrefix(q)
	matches, _ := filepath.Glob(filepath.Join(root, pdfDir, prefix+"*.pdf"))
	for _, m := range matches {
		rest := strings.TrimPrefix(filepath.Base(m), prefix)
		if len(rest) < 5 || rest[4] != '_' {
			continue
		}
		if y, err := strconv.Atoi(rest[:4]); err == nil && y > 0 {
			years = append(years, y)
		}
	}
	return years
}

// stemPrefix is the author part of the stem including its trailing "_".
func stemPrefix(q types.PaperQuery) string {
	author := q.FirstAuthorSurname()
	if author == "" {
		author = "unknown"
	}
	p := slugify(author) + "_"
	if len(q.Surnames()) > 1 {
		p += "et_al_"
	}
	return p
}

// slugify keeps ASCII letters and digits, lowercased, and joins the
// remaining runs with underscores.
func slugify(s string) string {
	s = strings.ToLower(types.FoldASCII(s))
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// truncateSlug cuts s to at most n bytes, preferring the last underscore.
func truncateSlug(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	if i := strings.LastIndexByte(s, '_'); i > n/2 {
		s = s[:i]
	}
	return strings.TrimRight(s, "_")
}
