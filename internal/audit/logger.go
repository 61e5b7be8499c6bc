// Package audit records a history of creation and removal pipeline
// transitions so an operator can reconstruct what the daemon did and why,
// independent of the leveled log stream.
package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies which pipeline (or daemon-wide concern) an event
// belongs to.
type EventType string

const (
	// EventTypeCreation is a creation pipeline transition.
	EventTypeCreation EventType = "creation"
	// EventTypeRemoval is a removal pipeline transition.
	EventTypeRemoval EventType = "removal"
	// EventTypeDisk is a disk-pressure reclamation event.
	EventTypeDisk EventType = "disk"
	// EventTypeConfig is a configuration reload event.
	EventTypeConfig EventType = "config"
)

// EventAction is the specific transition or step an event records.
type EventAction string

const (
	// ActionStart marks the beginning of a pipeline run.
	ActionStart EventAction = "start"
	// ActionHook marks a pre/post hook invocation.
	ActionHook EventAction = "hook"
	// ActionSpawn marks an rsync/rm child being spawned.
	ActionSpawn EventAction = "spawn"
	// ActionRestart marks a restartable child exit being retried.
	ActionRestart EventAction = "restart"
	// ActionSuccess marks a pipeline completing successfully.
	ActionSuccess EventAction = "success"
	// ActionFailure marks a pipeline aborting with a fatal error.
	ActionFailure EventAction = "failure"
	// ActionReload marks a configuration reload.
	ActionReload EventAction = "reload"
)

// EventSeverity is the importance of an event.
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// Event is a single audit log entry.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	Action    EventAction   `json:"action"`
	Severity  EventSeverity `json:"severity"`
	// Snapshot is the name of the snapshot directory involved, if any.
	Snapshot string `json:"snapshot,omitempty"`
	// Pid is the child process pid involved, if any.
	Pid int `json:"pid,omitempty"`
	// Description is a human-readable summary.
	Description string `json:"description"`
	// Metadata holds additional context (hook command, rsync argv, exit code).
	Metadata map[string]string `json:"metadata,omitempty"`
	// CorrelationID groups every event belonging to one pipeline run.
	CorrelationID string `json:"correlation_id,omitempty"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Filter restricts which events Query returns.
type Filter struct {
	Types         []EventType
	Actions       []EventAction
	CorrelationID string
	Snapshot      string
	StartTime     *time.Time
	EndTime       *time.Time
	FailedOnly    bool
	Limit         int
	Offset        int
}

// Summary aggregates statistics over a set of events.
type Summary struct {
	TotalEvents    int                 `json:"total_events"`
	EventsByType   map[EventType]int   `json:"events_by_type"`
	EventsByAction map[EventAction]int `json:"events_by_action"`
	SuccessCount   int                 `json:"success_count"`
	FailureCount   int                 `json:"failure_count"`
	FirstEvent     *time.Time          `json:"first_event,omitempty"`
	LastEvent      *time.Time          `json:"last_event,omitempty"`
}

// Export is the serializable form of an audit log.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Events     []Event   `json:"events"`
}

// Logger records and queries pipeline audit events.
type Logger interface {
	Log(event *Event) error
	LogCreation(correlationID, snapshot string, action EventAction, success bool, pid int, metadata map[string]string) (*Event, error)
	LogRemoval(correlationID, snapshot string, action EventAction, success bool, pid int, metadata map[string]string) (*Event, error)
	LogDiskPressure(percentFree float64, victim string) (*Event, error)
	LogReload(success bool, errMsg string) (*Event, error)
	Get(id string) (*Event, bool)
	List() []Event
	Query(filter *Filter) []Event
	GetByCorrelation(correlationID string) []Event
	GetSummary() *Summary
	Export() (*Export, error)
	ToJSON() ([]byte, error)
	Clear()
	Prune(before time.Time) int
}

// InMemoryLogger is a bounded in-memory audit log, safe for concurrent use.
type InMemoryLogger struct {
	mu      sync.RWMutex
	events  map[string]*Event
	maxSize int
}

// NewInMemoryLogger creates a logger retaining at most maxSize events,
// pruning the oldest 10% once capacity is reached. maxSize<=0 defaults to
// 10000.
func NewInMemoryLogger(maxSize int) *InMemoryLogger {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &InMemoryLogger{
		events:  make(map[string]*Event),
		maxSize: maxSize,
	}
}

// NewCorrelationID returns a fresh identifier for grouping the events of one
// pipeline run.
func NewCorrelationID() string {
	return uuid.NewString()
}

func (l *InMemoryLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if len(l.events) >= l.maxSize {
		l.pruneOldest(l.maxSize / 10)
	}
	l.events[event.ID] = event
	return nil
}

func (l *InMemoryLogger) pruneOldest(n int) {
	if n <= 0 || len(l.events) == 0 {
		return
	}
	events := make([]*Event, 0, len(l.events))
	for _, e := range l.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	if n > len(events) {
		n = len(events)
	}
	for i := 0; i < n; i++ {
		delete(l.events, events[i].ID)
	}
}

func severityFor(success bool) EventSeverity {
	if success {
		return SeverityInfo
	}
	return SeverityError
}

// LogCreation records a creation pipeline transition.
func (l *InMemoryLogger) LogCreation(correlationID, snapshot string, action EventAction, success bool, pid int, metadata map[string]string) (*Event, error) {
	event := &Event{
		Type:          EventTypeCreation,
		Action:        action,
		Severity:      severityFor(success),
		Snapshot:      snapshot,
		Pid:           pid,
		Description:   fmt.Sprintf("creation %s: %s", action, snapshot),
		Metadata:      metadata,
		CorrelationID: correlationID,
		Success:       success,
	}
	if err := l.Log(event); err != nil {
		return nil, err
	}
	return event, nil
}

// LogRemoval records a removal pipeline transition.
func (l *InMemoryLogger) LogRemoval(correlationID, snapshot string, action EventAction, success bool, pid int, metadata map[string]string) (*Event, error) {
	event := &Event{
		Type:          EventTypeRemoval,
		Action:        action,
		Severity:      severityFor(success),
		Snapshot:      snapshot,
		Pid:           pid,
		Description:   fmt.Sprintf("removal %s: %s", action, snapshot),
		Metadata:      metadata,
		CorrelationID: correlationID,
		Success:       success,
	}
	if err := l.Log(event); err != nil {
		return nil, err
	}
	return event, nil
}

// LogDiskPressure records that low free space triggered an out-of-band
// removal of victim.
func (l *InMemoryLogger) LogDiskPressure(percentFree float64, victim string) (*Event, error) {
	event := &Event{
		Type:        EventTypeDisk,
		Action:      ActionStart,
		Severity:    SeverityWarning,
		Snapshot:    victim,
		Description: fmt.Sprintf("disk pressure at %.1f%% free, reclaiming %s", percentFree, victim),
		Metadata:    map[string]string{"percent_free": fmt.Sprintf("%.2f", percentFree)},
		Success:     true,
	}
	if err := l.Log(event); err != nil {
		return nil, err
	}
	return event, nil
}

// LogReload records a configuration reload attempt.
func (l *InMemoryLogger) LogReload(success bool, errMsg string) (*Event, error) {
	event := &Event{
		Type:         EventTypeConfig,
		Action:       ActionReload,
		Severity:     severityFor(success),
		Description:  "configuration reload",
		Success:      success,
		ErrorMessage: errMsg,
	}
	if err := l.Log(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (l *InMemoryLogger) Get(id string) (*Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.events[id]
	return e, ok
}

func (l *InMemoryLogger) List() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result
}

func (l *InMemoryLogger) Query(filter *Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if filter == nil {
		return l.List()
	}

	var result []Event
	for _, e := range l.events {
		if l.matches(e, filter) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []Event{}
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result
}

func (l *InMemoryLogger) matches(e *Event, filter *Filter) bool {
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Actions) > 0 {
		found := false
		for _, a := range filter.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.CorrelationID != "" && e.CorrelationID != filter.CorrelationID {
		return false
	}
	if filter.Snapshot != "" && e.Snapshot != filter.Snapshot {
		return false
	}
	if filter.StartTime != nil && e.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && e.Timestamp.After(*filter.EndTime) {
		return false
	}
	if filter.FailedOnly && e.Success {
		return false
	}
	return true
}

// GetByCorrelation returns every event sharing correlationID, e.g. every
// step of one creation or removal run.
func (l *InMemoryLogger) GetByCorrelation(correlationID string) []Event {
	return l.Query(&Filter{CorrelationID: correlationID})
}

func (l *InMemoryLogger) GetSummary() *Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := &Summary{
		EventsByType:   make(map[EventType]int),
		EventsByAction: make(map[EventAction]int),
	}
	for _, e := range l.events {
		summary.TotalEvents++
		summary.EventsByType[e.Type]++
		summary.EventsByAction[e.Action]++
		if e.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
		if summary.FirstEvent == nil || e.Timestamp.Before(*summary.FirstEvent) {
			t := e.Timestamp
			summary.FirstEvent = &t
		}
		if summary.LastEvent == nil || e.Timestamp.After(*summary.LastEvent) {
			t := e.Timestamp
			summary.LastEvent = &t
		}
	}
	return summary
}

func (l *InMemoryLogger) Export() (*Export, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	return &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Events:     events,
	}, nil
}

func (l *InMemoryLogger) ToJSON() ([]byte, error) {
	export, err := l.Export()
	if err != nil {
		return nil, err
	}
	return json.Marshal(export)
}

func (l *InMemoryLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = make(map[string]*Event)
}

// Prune removes events older than before, returning the count removed.
func (l *InMemoryLogger) Prune(before time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for id, e := range l.events {
		if e.Timestamp.Before(before) {
			delete(l.events, id)
			count++
		}
	}
	return count
}
