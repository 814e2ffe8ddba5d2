// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// PaperResult pairs a query with its search result for display.
type PaperResult struct {
	Query  types.PaperQuery `json:"query" yaml:"query"`
	Result Result           `json:"result" yaml:"result"`
}

// FormatTable writes ranked candidates per paper as a human-readable table.
func FormatTable(results []PaperResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No papers searched.")
		return
	}

	found := 0
	for _, pr := range results {
		fmt.Fprintf(w, "\n%s\n", truncate(pr.Query.Title, 100))
		if !pr.Result.Found() {
			fmt.Fprintln(w, "  no acceptable candidates")
			for _, d := range pr.Result.Diagnostics {
				fmt.Fprintf(w, "  warning: %s\n", d)
			}
			continue
		}
		found++
		fmt.Fprintf(w, "  %-4s  %-50s  %-20s  %-4s  %-5s  %s\n",
			"Rank", "Title", "Authors", "Year", "Score", "Source")
		for i, s := range pr.Result.Ranked {
			year := ""
			if s.Candidate.Year > 0 {
				year = strconv.Itoa(s.Candidate.Year)
			}
			fmt.Fprintf(w, "  %-4d  %-50s  %-20s  %-4s  %-5.2f  %s\n",
				i+1, truncate(s.Candidate.Title, 50), formatAuthors(s.Candidate.Authors),
				year, s.Score, s.Candidate.SourceID)
		}
	}
	fmt.Fprintf(w, "\n%d of %d papers have acceptable candidates\n", found, len(results))
}

// FormatJSON writes the results as indented JSON.
func FormatJSON(results []PaperResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
