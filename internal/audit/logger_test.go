package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryLogger(t *testing.T) {
	logger := NewInMemoryLogger(100)
	assert.NotNil(t, logger)
	assert.Equal(t, 100, logger.maxSize)
}

func TestNewInMemoryLogger_DefaultMaxSize(t *testing.T) {
	logger := NewInMemoryLogger(0)
	assert.Equal(t, 10000, logger.maxSize)

	logger = NewInMemoryLogger(-1)
	assert.Equal(t, 10000, logger.maxSize)
}

func TestInMemoryLogger_Log(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event := &Event{
		Type:        EventTypeCreation,
		Action:      ActionStart,
		Severity:    SeverityInfo,
		Snapshot:    "100-200.a-b",
		Description: "creation started",
		Success:     true,
	}

	err := logger.Log(event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestInMemoryLogger_Log_NilEvent(t *testing.T) {
	logger := NewInMemoryLogger(100)

	err := logger.Log(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}

func TestInMemoryLogger_Log_PreservesExistingID(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event := &Event{
		ID:       "custom-id",
		Type:     EventTypeCreation,
		Action:   ActionStart,
		Snapshot: "100-200.a-b",
		Success:  true,
	}

	err := logger.Log(event)
	require.NoError(t, err)
	assert.Equal(t, "custom-id", event.ID)
}

func TestInMemoryLogger_Log_MaxSizePruning(t *testing.T) {
	logger := NewInMemoryLogger(10)

	for i := 0; i < 15; i++ {
		event := &Event{
			Type:     EventTypeCreation,
			Action:   ActionSpawn,
			Snapshot: "100-200.a-b",
			Success:  true,
		}
		err := logger.Log(event)
		require.NoError(t, err)
	}

	events := logger.List()
	assert.True(t, len(events) <= 10)
}

func TestInMemoryLogger_LogCreation(t *testing.T) {
	logger := NewInMemoryLogger(100)

	corr := NewCorrelationID()
	metadata := map[string]string{"argv": "rsync -aq --delete"}
	event, err := logger.LogCreation(corr, "100-200.a-b", ActionSuccess, true, 4321, metadata)

	require.NoError(t, err)
	assert.NotNil(t, event)
	assert.Equal(t, EventTypeCreation, event.Type)
	assert.Equal(t, ActionSuccess, event.Action)
	assert.Equal(t, SeverityInfo, event.Severity)
	assert.Equal(t, corr, event.CorrelationID)
	assert.Equal(t, 4321, event.Pid)
}

func TestInMemoryLogger_LogCreation_Failure(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event, err := logger.LogCreation("corr-1", "100-200.a-b", ActionFailure, false, 0, nil)

	require.NoError(t, err)
	assert.Equal(t, SeverityError, event.Severity)
	assert.False(t, event.Success)
}

func TestInMemoryLogger_LogRemoval(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event, err := logger.LogRemoval("corr-2", "100-200.a-b_being_deleted", ActionStart, true, 1234, nil)

	require.NoError(t, err)
	assert.Equal(t, EventTypeRemoval, event.Type)
	assert.Equal(t, ActionStart, event.Action)
	assert.Equal(t, "corr-2", event.CorrelationID)
}

func TestInMemoryLogger_LogDiskPressure(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event, err := logger.LogDiskPressure(3.5, "100-200.a-b")

	require.NoError(t, err)
	assert.Equal(t, EventTypeDisk, event.Type)
	assert.Equal(t, SeverityWarning, event.Severity)
	assert.Equal(t, "100-200.a-b", event.Snapshot)
}

func TestInMemoryLogger_LogReload(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event, err := logger.LogReload(false, "yaml: line 3: mapping values are not allowed")

	require.NoError(t, err)
	assert.Equal(t, EventTypeConfig, event.Type)
	assert.Equal(t, ActionReload, event.Action)
	assert.False(t, event.Success)
	assert.Contains(t, event.ErrorMessage, "mapping values")
}

func TestInMemoryLogger_Get(t *testing.T) {
	logger := NewInMemoryLogger(100)

	event, err := logger.LogCreation("corr-3", "snap", ActionStart, true, 0, nil)
	require.NoError(t, err)

	got, ok := logger.Get(event.ID)
	assert.True(t, ok)
	assert.Equal(t, event.ID, got.ID)

	_, ok = logger.Get("missing")
	assert.False(t, ok)
}

func TestInMemoryLogger_List_NewestFirst(t *testing.T) {
	logger := NewInMemoryLogger(100)

	first := &Event{Type: EventTypeCreation, Action: ActionStart, Timestamp: time.Now().Add(-time.Hour)}
	second := &Event{Type: EventTypeCreation, Action: ActionSuccess, Timestamp: time.Now()}
	require.NoError(t, logger.Log(first))
	require.NoError(t, logger.Log(second))

	list := logger.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestInMemoryLogger_Query_ByCorrelation(t *testing.T) {
	logger := NewInMemoryLogger(100)

	corr := NewCorrelationID()
	_, err := logger.LogCreation(corr, "snap", ActionStart, true, 0, nil)
	require.NoError(t, err)
	_, err = logger.LogCreation(corr, "snap", ActionSuccess, true, 0, nil)
	require.NoError(t, err)
	_, err = logger.LogCreation("other-corr", "snap", ActionStart, true, 0, nil)
	require.NoError(t, err)

	matched := logger.GetByCorrelation(corr)
	assert.Len(t, matched, 2)
}

func TestInMemoryLogger_Query_FailedOnly(t *testing.T) {
	logger := NewInMemoryLogger(100)

	_, err := logger.LogCreation("c1", "snap", ActionSuccess, true, 0, nil)
	require.NoError(t, err)
	_, err = logger.LogCreation("c2", "snap", ActionFailure, false, 0, nil)
	require.NoError(t, err)

	failed := logger.Query(&Filter{FailedOnly: true})
	assert.Len(t, failed, 1)
	assert.Equal(t, ActionFailure, failed[0].Action)
}

func TestInMemoryLogger_Query_Limit(t *testing.T) {
	logger := NewInMemoryLogger(100)
	for i := 0; i < 5; i++ {
		_, err := logger.LogCreation("c", "snap", ActionSpawn, true, 0, nil)
		require.NoError(t, err)
	}

	limited := logger.Query(&Filter{Limit: 2})
	assert.Len(t, limited, 2)
}

func TestInMemoryLogger_GetSummary(t *testing.T) {
	logger := NewInMemoryLogger(100)
	_, err := logger.LogCreation("c1", "snap", ActionSuccess, true, 0, nil)
	require.NoError(t, err)
	_, err = logger.LogRemoval("c2", "snap", ActionFailure, false, 0, nil)
	require.NoError(t, err)

	summary := logger.GetSummary()
	assert.Equal(t, 2, summary.TotalEvents)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, 1, summary.EventsByType[EventTypeCreation])
	assert.Equal(t, 1, summary.EventsByType[EventTypeRemoval])
}

func TestInMemoryLogger_ExportAndToJSON(t *testing.T) {
	logger := NewInMemoryLogger(100)
	_, err := logger.LogCreation("c1", "snap", ActionStart, true, 0, nil)
	require.NoError(t, err)

	export, err := logger.Export()
	require.NoError(t, err)
	assert.Equal(t, "1.0", export.Version)
	assert.Len(t, export.Events, 1)

	data, err := logger.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "creation")
}

func TestInMemoryLogger_Clear(t *testing.T) {
	logger := NewInMemoryLogger(100)
	_, err := logger.LogCreation("c1", "snap", ActionStart, true, 0, nil)
	require.NoError(t, err)

	logger.Clear()
	assert.Empty(t, logger.List())
}

func TestInMemoryLogger_Prune(t *testing.T) {
	logger := NewInMemoryLogger(100)

	old := &Event{Type: EventTypeCreation, Action: ActionStart, Timestamp: time.Now().Add(-48 * time.Hour)}
	recent := &Event{Type: EventTypeCreation, Action: ActionSuccess, Timestamp: time.Now()}
	require.NoError(t, logger.Log(old))
	require.NoError(t, logger.Log(recent))

	removed := logger.Prune(time.Now().Add(-24 * time.Hour))
	assert.Equal(t, 1, removed)
	assert.Len(t, logger.List(), 1)
}

func TestNewCorrelationID_Unique(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
