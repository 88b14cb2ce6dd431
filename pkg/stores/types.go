package stores

import (
	"context"
)

// Record is a single student entry. All fields are free text; the store only
// guarantees that ID is unique within one store instance.
type Record struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Program string `json:"program" validate:"required"`
	Gender  string `json:"gender" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// Fields returns the record as a row in column order.
func (r Record) Fields() []string {
	return []string{r.ID, r.Name, r.Program, r.Gender, r.Status}
}

// Columns is the column order shared by the table schema and the CSV format.
var Columns = []string{"id", "name", "program", "gender", "status"}

// Store defines the interface for the record persistence layer
type Store interface {
	// Read operations
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, bool, error)
	Exists(ctx context.Context, id string) (bool, error)

	// Write operations. Update and Delete are no-ops for unknown ids;
	// the ID of a record never changes after Insert.
	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error

	// Import/export
	ExportCSV(ctx context.Context, path string) error
	ExportJSON(ctx context.Context, path string) error
	ImportCSV(ctx context.Context, path string) error

	// Lifecycle
	Close() error
}
