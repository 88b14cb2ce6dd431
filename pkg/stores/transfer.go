package stores

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roster/roster/pkg/location"
)

// writeCSV writes the header row followed by one row per record.
func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Fields()); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON writes records as an indented JSON array.
func writeJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// readCSV parses rows after the first (header) row. Rows with fewer than
// five fields fail with a malformed row error; extra fields are ignored.
// Quotes inside unquoted fields are kept literally. name is only used for
// error context.
func readCSV(r io.Reader, name string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	records := []Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv %s: %w", name, err)
		}

		if len(row) < len(Columns) {
			line, _ := cr.FieldPos(0)
			return nil, NewMalformedRowError(name, line, len(row))
		}

		records = append(records, Record{
			ID:      row[0],
			Name:    row[1],
			Program: row[2],
			Gender:  row[3],
			Status:  row[4],
		})
	}

	return records, nil
}

// exportTo streams records into path using encode.
func exportTo(ctx context.Context, locs location.Resolver, path string, records []Record, encode func(io.Writer, []Record) error) (retErr error) {
	w, err := locs.Create(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open export target: %w", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("failed to finish export: %w", cerr)
		}
	}()

	return encode(w, records)
}

// loadCSV opens and parses path, mapping unreadable sources to a
// file-not-found error.
func loadCSV(ctx context.Context, locs location.Resolver, path string) ([]Record, error) {
	rc, err := locs.Open(ctx, path)
	if err != nil {
		if errors.Is(err, location.ErrNotFound) {
			return nil, NewFileNotFoundError(path, err)
		}
		return nil, fmt.Errorf("failed to open import source: %w", err)
	}
	defer rc.Close()

	return readCSV(rc, path)
}

// checkBatch rejects ids that repeat within one import batch.
func checkBatch(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			return NewDuplicateKeyError(rec.ID, fmt.Errorf("id repeated in import"))
		}
		seen[rec.ID] = struct{}{}
	}
	return nil
}
