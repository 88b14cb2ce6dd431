// Package roster implements the record form: presence checks and id
// uniqueness ahead of the store calls.
package roster

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roster/roster/pkg/stores"
	"github.com/roster/roster/pkg/telemetry"
)

var (
	// ErrIDExists is returned by Add when the id is already stored.
	ErrIDExists = errors.New("student ID already exists")

	// ErrNotFound is returned by Update and Delete for unknown ids.
	ErrNotFound = errors.New("student not found")
)

// ValidationError lists the record fields left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Service is the form controller over an injected store.
type Service struct {
	store    stores.Store
	validate *validator.Validate
	logger   *telemetry.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(s *Service) {
		s.logger = l.NewComponentLogger("roster")
	}
}

// New creates a service over store.
func New(store stores.Store, opts ...Option) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	s := &Service{
		store:    store,
		validate: v,
		logger:   telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() stores.Store {
	return s.store
}

// Add validates rec and inserts it when its id is free.
func (s *Service) Add(ctx context.Context, rec stores.Record) error {
	if err := s.check(rec); err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx, rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrIDExists, rec.ID)
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		if stores.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", ErrIDExists, rec.ID)
		}
		return err
	}

	s.logger.WithRecordID(rec.ID).Info("student added")
	return nil
}

// Update validates rec and replaces the stored record with the same id.
func (s *Service) Update(ctx context.Context, rec stores.Record) error {
	if err := s.check(rec); err != nil {
		return err
	}
	if err := s.mustExist(ctx, rec.ID); err != nil {
		return err
	}

	if err := s.store.Update(ctx, rec); err != nil {
		return err
	}

	s.logger.WithRecordID(rec.ID).Info("student updated")
	return nil
}

// Delete removes the record with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.mustExist(ctx, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithRecordID(id).Info("student deleted")
	return nil
}

// Get returns the record with id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (stores.Record, error) {
	rec, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return stores.Record{}, err
	}
	if !ok {
		return stores.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Exists reports whether id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.Exists(ctx, id)
}

// List returns every record.
func (s *Service) List(ctx context.Context) ([]stores.Record, error) {
	return s.store.List(ctx)
}

// ExportCSV writes every record to path as CSV.
func (s *Service) ExportCSV(ctx context.Context, path string) error {
	return s.store.ExportCSV(ctx, path)
}

// ExportJSON writes every record to path as JSON.
func (s *Service) ExportJSON(ctx context.Context, path string) error {
	return s.store.ExportJSON(ctx, path)
}

// ImportCSV appends the rows of path.
func (s *Service) ImportCSV(ctx context.Context, path string) error {
	if err := s.store.ImportCSV(ctx, path); err != nil {
		return err
	}
	s.logger.WithPath(path).Info("import finished")
	return nil
}

func (s *Service) check(rec stores.Record) error {
	err := s.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate record: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

func (s *Service) mustExist(ctx context.Context, id string) error {
	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
