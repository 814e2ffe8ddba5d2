// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package input reads paper queries from files. The format follows the
// extension: .txt holds one citation per line, .csv and .xlsx have a
// header with title, authors, year, and doi columns, and .json or .yaml
// hold a list of query records.
package input

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Record is the on-disk form of one query in JSON and YAML inputs.
// Authors may be a list or a single string.
type Record struct {
	Title    string  `json:"title" yaml:"title"`
	Authors  Authors `json:"authors" yaml:"authors"`
	Year     int     `json:"year" yaml:"year"`
	DOI      string  `json:"doi" yaml:"doi"`
	Citation string  `json:"citation" yaml:"citation"`
}

// Authors accepts either a list of names or one delimited string.
type Authors []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Authors) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = cleanAuthors(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("authors must be a string or a list: %w", err)
	}
	*a = SplitAuthors(s)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Authors) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*a = cleanAuthors(list)
	case yaml.ScalarNode:
		*a = SplitAuthors(node.Value)
	default:
		return fmt.Errorf("line %d: authors must be a string or a list", node.Line)
	}
	return nil
}

// Query converts the record into a paper query. A record holding only a
// citation is parsed.
func (r Record) Query() types.PaperQuery {
	if r.Title == "" && r.Citation != "" {
		q := ParseCitation(r.Citation)
		if r.DOI != "" {
			q.DOI = r.DOI
		}
		return q
	}
	return types.PaperQuery{
		Title:       strings.TrimSpace(r.Title),
		Authors:     []string(r.Authors),
		Year:        r.Year,
		DOI:         strings.TrimSpace(r.DOI),
		RawCitation: r.Citation,
	}
}

// ReadFile reads queries from path, choosing the parser by extension.
// Unknown extensions are read as plain text.
func ReadFile(path string) ([]types.PaperQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	var qs []types.PaperQuery
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		qs, err = ReadCSV(f)
	case ".xlsx":
		qs, err = ReadXLSX(f)
	case ".json":
		qs, err = ReadJSON(f)
	case ".yaml", ".yml":
		qs, err = ReadYAML(f)
	default:
		qs, err = ReadText(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return qs, nil
}

// ReadText reads one citation per line. Blank lines and lines starting
// with '#' are ignored.
func ReadText(r io.Reader) ([]types.PaperQuery, error) {
	var out []types.PaperQuery
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, ParseCitation(line))
	}
	return out, sc.Err()
}

// ReadCSV reads a CSV file with a header row. The title column is
// required; authors, year, and doi are optional.
func ReadCSV(r io.Reader) ([]types.PaperQuery, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := newColumns(header)
	if err != nil {
		return nil, err
	}

	var out []types.PaperQuery
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		q, err := cols.query(row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// ReadXLSX reads the first sheet of a spreadsheet laid out like the CSV
// input: a header row, then one paper per row. Empty rows are skipped.
func ReadXLSX(r io.Reader) ([]types.PaperQuery, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cols, err := newColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var out []types.PaperQuery
	for i, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		q, err := cols.query(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// columns maps lowercased header names to their positions.
type columns map[string]int

func newColumns(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("header has no title column")
	}
	return cols, nil
}

func (c columns) field(row []string, name string) string {
	if i, ok := c[name]; ok && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func (c columns) query(row []string) (types.PaperQuery, error) {
	q := types.PaperQuery{
		Title:   c.field(row, "title"),
		Authors: SplitAuthors(c.field(row, "authors")),
		DOI:     c.field(row, "doi"),
	}
	if y := c.field(row, "year"); y != "" {
		var err error
		if q.Year, err = strconv.Atoi(y); err != nil {
			return q, fmt.Errorf("invalid year %q", y)
		}
	}
	return q, nil
}

// ReadJSON reads a JSON array of records.
func ReadJSON(r io.Reader) ([]types.PaperQuery, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return toQueries(recs), nil
}

// ReadYAML reads a YAML list of records, either at the top level or under
// a "papers" key.
func ReadYAML(r io.Reader) ([]types.PaperQuery, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var recs []Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		var doc struct {
			Papers []Record `yaml:"papers"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		recs = doc.Papers
	}
	return toQueries(recs), nil
}

func toQueries(recs []Record) []types.PaperQuery {
	out := make([]types.PaperQuery, len(recs))
	for i, r := range recs {
		out[i] = r.Query()
	}
	return out
}

var (
	// Authors (Year). Title. Rest
	citationPattern = regexp.MustCompile(`^(.+?)\s*\(\s*(\d{4})[a-z]?\s*\)\s*[.,:]?\s*(.+)$`)
	authorSep       = regexp.MustCompile(`\s*(?:;|&|\band\b)\s*`)
	etAlPattern     = regexp.MustCompile(`(?i)\bet\s+al\.?`)

	// numberingPattern matches bibliography numbering such as "[12] " or "3. ".
	numberingPattern = regexp.MustCompile(`^(?:\[\d+\]|\d{1,4}[.)])\s+`)
)

// ParseCitation extracts title, authors, and year from a reference line
// such as "Aizawa T., Inohara T. (2019). Pico- and femtosecond laser
// micromachining. Journal, 12, 1-9." A line that does not match is taken
// as a bare title. A DOI anywhere in the line is kept.
func ParseCitation(line string) types.PaperQuery {
	line = numberingPattern.ReplaceAllString(strings.TrimSpace(line), "")
	q := types.PaperQuery{RawCitation: line, DOI: types.ExtractDOI(line)}

	m := citationPattern.FindStringSubmatch(line)
	if m == nil {
		q.Title = strings.TrimRight(line, ". ")
		return q
	}
	q.Authors = SplitAuthors(m[1])
	q.Year, _ = strconv.Atoi(m[2])
	q.Title = citationTitle(m[3])
	return q
}

// citationTitle keeps the first sentence of rest, which in the common
// reference styles is the title. Quoted titles are unquoted.
func citationTitle(rest string) string {
	rest = strings.TrimSpace(rest)
	for _, quote := range []string{`"`, "“"} {
		if strings.HasPrefix(rest, quote) {
			closeQuote := quote
			if quote == "“" {
				closeQuote = "”"
			}
			if end := strings.Index(rest[len(quote):], closeQuote); end > 0 {
				return strings.TrimRight(strings.TrimSpace(rest[len(quote):len(quote)+end]), ".,")
			}
		}
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] != '.' && rest[i] != '?' && rest[i] != '!' {
			continue
		}
		if i+1 == len(rest) || rest[i+1] == ' ' {
			t := rest[:i]
			if rest[i] != '.' {
				t = rest[:i+1]
			}
			return strings.TrimSpace(t)
		}
	}
	return strings.TrimRight(rest, ". ")
}

// SplitAuthors splits a delimited author string. Names are separated by
// ';', '&', or "and"; commas separate names unless the string uses the
// "Last, First" form throughout. "et al." is dropped.
func SplitAuthors(s string) []string {
	s = etAlPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.Trim(s, " ,;"))
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range authorSep.Split(s, -1) {
		out = append(out, splitCommas(part)...)
	}
	return cleanAuthors(out)
}

// splitCommas splits "A. Smith, B. Jones" into names but keeps a single
// "Smith, John" or "Smith, J." together.
func splitCommas(s string) []string {
	pieces := strings.Split(s, ",")
	if len(pieces) == 2 {
		given := strings.TrimSpace(pieces[1])
		if given != "" && !strings.Contains(strings.TrimSpace(pieces[0]), " ") && !strings.Contains(given, " ") {
			return []string{s}
		}
	}
	var out []string
	for i := 0; i < len(pieces); i++ {
		p := strings.TrimSpace(pieces[i])
		// "Last, I., Last2, I." pairs surname with the following initials.
		if i+1 < len(pieces) && isInitials(strings.TrimSpace(pieces[i+1])) && !strings.Contains(p, " ") {
			out = append(out, p+", "+strings.TrimSpace(pieces[i+1]))
			i++
			continue
		}
		out = append(out, p)
	}
	return out
}

func isInitials(s string) bool {
	if s == "" || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && r != '.' && r != ' ' && r != '-' {
			return false
		}
	}
	return true
}

func cleanAuthors(in []string) []string {
	var out []string
	for _, a := range in {
		a = strings.TrimSpace(strings.Trim(a, " ,;"))
		if a != "" && !etAlPattern.MatchString(a) {
			out = append(out, a)
		}
	}
	return out
}
