package stores

import (
	"context"
	"errors"

	"github.com/roster/roster/pkg/telemetry"
)

const eventSource = "store"

// instrumented decorates a Store with logging, tracing, metrics, and
// change events.
type instrumented struct {
	next Store
	tel  *telemetry.Telemetry
}

// Instrument wraps s so that every call is traced, timed, counted, and
// logged through tel. Successful writes publish change events.
func Instrument(s Store, tel *telemetry.Telemetry) Store {
	if tel == nil {
		return s
	}
	return &instrumented{next: s, tel: tel}
}

func (s *instrumented) List(ctx context.Context) ([]Record, error) {
	op := s.tel.StartOperation(ctx, "list")
	records, err := s.next.List(op.Ctx)
	if err == nil {
		s.tel.Metrics.SetRecordCount(len(records))
	}
	op.End(err, string(KindOf(err)))
	return records, err
}

func (s *instrumented) Get(ctx context.Context, id string) (Record, bool, error) {
	op := s.tel.StartOperation(ctx, "get", telemetry.AttrRecordID.String(id))
	rec, ok, err := s.next.Get(op.Ctx, id)
	op.End(err, string(KindOf(err)))
	return rec, ok, err
}

func (s *instrumented) Exists(ctx context.Context, id string) (bool, error) {
	op := s.tel.StartOperation(ctx, "exists", telemetry.AttrRecordID.String(id))
	ok, err := s.next.Exists(op.Ctx, id)
	op.End(err, string(KindOf(err)))
	return ok, err
}

func (s *instrumented) Insert(ctx context.Context, rec Record) error {
	op := s.tel.StartOperation(ctx, "insert", telemetry.AttrRecordID.String(rec.ID))
	err := s.next.Insert(op.Ctx, rec)
	s.finish(op, "insert", err, func() { s.tel.Events.PublishInserted(eventSource, rec.ID) })
	return err
}

func (s *instrumented) Update(ctx context.Context, rec Record) error {
	op := s.tel.StartOperation(ctx, "update", telemetry.AttrRecordID.String(rec.ID))
	err := s.next.Update(op.Ctx, rec)
	s.finish(op, "update", err, func() { s.tel.Events.PublishUpdated(eventSource, rec.ID) })
	return err
}

func (s *instrumented) Delete(ctx context.Context, id string) error {
	op := s.tel.StartOperation(ctx, "delete", telemetry.AttrRecordID.String(id))
	err := s.next.Delete(op.Ctx, id)
	s.finish(op, "delete", err, func() { s.tel.Events.PublishDeleted(eventSource, id) })
	return err
}

func (s *instrumented) ExportCSV(ctx context.Context, path string) error {
	op := s.tel.StartOperation(ctx, "export_csv", telemetry.AttrPath.String(path))
	err := s.next.ExportCSV(op.Ctx, path)
	s.finish(op, "export_csv", err, func() { s.tel.Events.PublishExported(eventSource, path, "csv") })
	return err
}

func (s *instrumented) ExportJSON(ctx context.Context, path string) error {
	op := s.tel.StartOperation(ctx, "export_json", telemetry.AttrPath.String(path))
	err := s.next.ExportJSON(op.Ctx, path)
	s.finish(op, "export_json", err, func() { s.tel.Events.PublishExported(eventSource, path, "json") })
	return err
}

// ImportCSV reports the imported row count as the change in store size,
// when the wrapped store can count. An unknown count is published as -1.
func (s *instrumented) ImportCSV(ctx context.Context, path string) error {
	op := s.tel.StartOperation(ctx, "import_csv", telemetry.AttrPath.String(path))
	before, countErr := s.count(op.Ctx)
	err := s.next.ImportCSV(op.Ctx, path)
	s.finish(op, "import_csv", err, func() {
		imported := -1
		if countErr == nil {
			after, err := s.count(op.Ctx)
			if err == nil {
				imported = after - before
			} else {
				countErr = err
			}
		}
		if countErr != nil {
			op.Logger.WithError(countErr).Debug("import count unavailable")
		}
		s.tel.Events.PublishImported(eventSource, path, imported)
	})
	return err
}

// counter is implemented by stores that report their size without a scan.
type counter interface {
	Count(ctx context.Context) (int, error)
}

var errNoCount = errors.New("store cannot count records")

func (s *instrumented) count(ctx context.Context) (int, error) {
	c, ok := s.next.(counter)
	if !ok {
		return 0, errNoCount
	}
	return c.Count(ctx)
}

func (s *instrumented) Close() error {
	return s.next.Close()
}

// Unwrap returns the decorated store.
func (s *instrumented) Unwrap() Store {
	return s.next
}

func (s *instrumented) finish(op *telemetry.InstrumentedContext, operation string, err error, publish func()) {
	op.End(err, string(KindOf(err)))
	if err != nil {
		s.tel.Events.PublishError(eventSource, operation, err)
		return
	}
	publish()
}
