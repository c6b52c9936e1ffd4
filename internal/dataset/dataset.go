// Package dataset converts between CSV files and the record collections the validator and the
// allocator consume.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"alchemist/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses a headed CSV into records. Header names are trimmed; blank lines are skipped.
// A short row leaves the missing columns absent from its record and cells beyond the header
// are dropped. Values are kept verbatim.
func ReadCSV(r io.Reader) ([]domain.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	out := []domain.Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(row) {
			continue
		}
		rec := make(domain.Record, len(header))
		for i, col := range header {
			if i >= len(row) || col == "" {
				continue
			}
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// Columns returns the union of record keys. Known columns of kind come first in their
// canonical order, the rest follow sorted.
func Columns(kind domain.DatasetKind, records []domain.Record) []string {
	seen := map[string]bool{}
	var cols []string
	for _, c := range canonical[kind] {
		seen[c] = true
		cols = append(cols, c)
	}
	var extra []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

var canonical = map[domain.DatasetKind][]string{
	domain.Clients: {domain.ColClientID, domain.ColPriorityLevel, domain.ColRequestedTaskIDs},
	domain.Workers: {domain.ColWorkerID, domain.ColSkills, domain.ColAvailableSlots, domain.ColMaxLoadPerPhase, domain.ColQualificationLevel},
	domain.Tasks:   {domain.ColTaskID, domain.ColDuration, domain.ColMaxConcurrent, domain.ColRequiredSkills, domain.ColPreferredPhases},
}

// WriteCSV writes records under the given header. Absent cells are written empty.
func WriteCSV(w io.Writer, columns []string, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			row[i] = rec[c]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Match is a search hit with its index in the searched collection.
type Match struct {
	Index  int           `json:"index"`
	Record domain.Record `json:"record"`
}

// Search returns the records with any cell containing query, case-insensitively. An empty or
// blank query matches every record.
func Search(records []domain.Record, query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Match{}
	for i, rec := range records {
		if q == "" || anyCellContains(rec, q) {
			out = append(out, Match{Index: i, Record: rec})
		}
	}
	return out
}

func anyCellContains(rec domain.Record, lowered string) bool {
	for _, v := range rec {
		if strings.Contains(strings.ToLower(v), lowered) {
			return true
		}
	}
	return false
}
