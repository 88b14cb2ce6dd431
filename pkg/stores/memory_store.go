package stores

import (
	"context"
	"slices"

	"github.com/roster/roster/pkg/location"
)

// MemoryStore implements the Store interface over a process-local slice.
// Records keep insertion order. Persistence is only through export/import.
type MemoryStore struct {
	records   []Record
	locations location.Resolver
}

// Option configures a store.
type Option func(*options)

type options struct {
	locations location.Resolver
}

// WithLocations sets the resolver used for import/export paths.
func WithLocations(r location.Resolver) Option {
	return func(o *options) {
		o.locations = r
	}
}

func buildOptions(opts []Option) options {
	o := options{locations: location.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		records:   []Record{},
		locations: o.locations,
	}
}

// List returns a copy of all records in insertion order.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	return slices.Clone(s.records), nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	return len(s.records), nil
}

// Get returns the record with id.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, bool, error) {
	if i := s.index(id); i >= 0 {
		return s.records[i], true, nil
	}
	return Record{}, false, nil
}

// Exists reports whether a record with id is present.
func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	return s.index(id) >= 0, nil
}

// Insert appends rec, rejecting ids already present.
func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	if s.index(rec.ID) >= 0 {
		return NewDuplicateKeyError(rec.ID, nil)
	}
	s.records = append(s.records, rec)
	return nil
}

// Update replaces the non-id fields of the record matching rec.ID.
func (s *MemoryStore) Update(_ context.Context, rec Record) error {
	if i := s.index(rec.ID); i >= 0 {
		s.records[i] = rec
	}
	return nil
}

// Delete removes the record with id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if i := s.index(id); i >= 0 {
		s.records = slices.Delete(s.records, i, i+1)
	}
	return nil
}

// ExportCSV writes all records to path as CSV.
func (s *MemoryStore) ExportCSV(ctx context.Context, path string) error {
	return exportTo(ctx, s.locations, path, s.records, writeCSV)
}

// ExportJSON writes all records to path as a JSON array.
func (s *MemoryStore) ExportJSON(ctx context.Context, path string) error {
	return exportTo(ctx, s.locations, path, s.records, writeJSON)
}

// ImportCSV appends the rows of path. Either every row is inserted or none.
func (s *MemoryStore) ImportCSV(ctx context.Context, path string) error {
	records, err := loadCSV(ctx, s.locations, path)
	if err != nil {
		return err
	}
	if err := checkBatch(records); err != nil {
		return err
	}
	for _, rec := range records {
		if s.index(rec.ID) >= 0 {
			return NewDuplicateKeyError(rec.ID, nil)
		}
	}

	s.records = append(s.records, records...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) index(id string) int {
	return slices.IndexFunc(s.records, func(r Record) bool {
		return r.ID == id
	})
}
