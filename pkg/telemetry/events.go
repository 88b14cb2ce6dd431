package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a change notification emitted by an instrumented store.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`

	// RecordID is set for record.* events, Path for transfer.* events.
	RecordID string `json:"record_id,omitempty"`
	Path     string `json:"path,omitempty"`

	Message string                 `json:"message"`
	Level   string                 `json:"level"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

const (
	EventTypeRecordInserted = "record.inserted"
	EventTypeRecordUpdated  = "record.updated"
	EventTypeRecordDeleted  = "record.deleted"
	EventTypeImported       = "transfer.imported"
	EventTypeExported       = "transfer.exported"
	EventTypeError          = "error"
)

// Event levels, lowest first.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

var levelRank = map[string]int{
	EventLevelInfo:    0,
	EventLevelWarning: 1,
	EventLevelError:   2,
}

// EventSubscriber receives published events.
type EventSubscriber func(event Event)

// EventFilter reports whether an event should be delivered.
type EventFilter func(event Event) bool

type subscription struct {
	deliver EventSubscriber
	accept  EventFilter
}

// EventPublisher delivers events to subscribers in the publishing goroutine.
// A nil publisher drops everything.
type EventPublisher struct {
	mu     sync.RWMutex
	subs   []subscription
	global []EventFilter
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// Publish stamps e with an id, time and level when missing, then hands it
// to every subscriber whose filter accepts it. Global filters apply first.
func (ep *EventPublisher) Publish(e Event) {
	if ep == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Level == "" {
		e.Level = EventLevelInfo
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, accept := range ep.global {
		if !accept(e) {
			return
		}
	}
	for _, s := range ep.subs {
		if s.accept == nil || s.accept(e) {
			s.deliver(e)
		}
	}
}

func (ep *EventPublisher) publishRecord(typ, verb, source, id string) {
	ep.Publish(Event{
		Type:     typ,
		Source:   source,
		RecordID: id,
		Message:  fmt.Sprintf("Record %s %s", id, verb),
	})
}

func (ep *EventPublisher) PublishInserted(source, id string) {
	ep.publishRecord(EventTypeRecordInserted, "inserted", source, id)
}

func (ep *EventPublisher) PublishUpdated(source, id string) {
	ep.publishRecord(EventTypeRecordUpdated, "updated", source, id)
}

func (ep *EventPublisher) PublishDeleted(source, id string) {
	ep.publishRecord(EventTypeRecordDeleted, "deleted", source, id)
}

// PublishImported reports count records imported from path. A negative
// count means the store could not tell, and is left out of Data.
func (ep *EventPublisher) PublishImported(source, path string, count int) {
	e := Event{
		Type:    EventTypeImported,
		Source:  source,
		Path:    path,
		Message: fmt.Sprintf("Imported records from %s", path),
	}
	if count >= 0 {
		e.Message = fmt.Sprintf("Imported %d records from %s", count, path)
		e.Data = map[string]interface{}{"count": count}
	}
	ep.Publish(e)
}

// PublishExported reports an export of the given format to path.
func (ep *EventPublisher) PublishExported(source, path, format string) {
	ep.Publish(Event{
		Type:    EventTypeExported,
		Source:  source,
		Path:    path,
		Message: fmt.Sprintf("Exported %s to %s", format, path),
		Data:    map[string]interface{}{"format": format},
	})
}

// PublishError reports a failed store operation at error level.
func (ep *EventPublisher) PublishError(source, operation string, err error) {
	ep.Publish(Event{
		Type:    EventTypeError,
		Source:  source,
		Level:   EventLevelError,
		Message: fmt.Sprintf("%s failed: %v", operation, err),
		Data:    map[string]interface{}{"operation": operation},
	})
}

// Subscribe registers fn. A nil filter accepts every event.
func (ep *EventPublisher) Subscribe(fn EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	ep.subs = append(ep.subs, subscription{deliver: fn, accept: filter})
	ep.mu.Unlock()
}

// AddFilter registers a filter applied before any subscriber sees an event.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	ep.global = append(ep.global, filter)
	ep.mu.Unlock()
}

// FilterByLevel accepts events at minLevel or above.
func FilterByLevel(minLevel string) EventFilter {
	floor := levelRank[minLevel]
	return func(e Event) bool { return levelRank[e.Level] >= floor }
}

// FilterByType accepts events whose type is one of types.
func FilterByType(types ...string) EventFilter {
	want := make(map[string]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := want[e.Type]
		return ok
	}
}

// FilterByRecordID accepts record events for one student id.
func FilterByRecordID(id string) EventFilter {
	return func(e Event) bool { return e.RecordID == id }
}
