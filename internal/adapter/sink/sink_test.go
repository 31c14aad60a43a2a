package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

func partEvent(action domain.Action, msg string) domain.Event {
	return domain.Event{
		ID:       "evt-1",
		RunID:    "run-1",
		Worker:   domain.WorkerRef{Kind: domain.WorkerPart, ID: 3},
		Action:   action,
		Message:  msg,
		Cycle:    2,
		Quantity: domain.VectorOf(1, 0, 2, 5, 3),
		Elapsed:  6800,
		Time:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func finishEvent() domain.Event {
	return domain.Event{ID: "evt-2", RunID: "run-1", Action: domain.ActionFinish, Message: "Finish!"}
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "Part Worker 3: Generating load order: [1, 0, 2, 5, 3]",
		FormatLine(partEvent(domain.ActionOrderGenerated, "Generating load order: [1, 0, 2, 5, 3]")))

	ev := partEvent(domain.ActionWaiting, "Waiting for required parts")
	ev.Worker = domain.WorkerRef{Kind: domain.WorkerProduct, ID: 1}
	assert.Equal(t, "Product Worker 1: Waiting for required parts", FormatLine(ev))

	assert.Equal(t, "Finish!", FormatLine(finishEvent()))
}

func TestFileSink_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	s, err := NewFileSink(path, FormatText)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.LogEvent(ctx, partEvent(domain.ActionOrderGenerated, "Generating load order: [1, 0, 2, 5, 3]")))
	require.NoError(t, s.LogEvent(ctx, finishEvent()))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Part Worker 3: Generating load order: [1, 0, 2, 5, 3]\nFinish!\n", string(b))

	assert.ErrorIs(t, s.LogEvent(ctx, finishEvent()), ErrClosed)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestFileSink_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	s, err := NewFileSink(path, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, s.LogEvent(context.Background(), partEvent(domain.ActionMoved, "Moved parts to cart: [1, 0, 2, 5, 3]")))
	require.NoError(t, s.LogEvent(context.Background(), finishEvent()))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var rec record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "part", rec.WorkerType)
	assert.Equal(t, 3, rec.WorkerID)
	assert.Equal(t, "moved", rec.Action)
	assert.Equal(t, []int{1, 0, 2, 5, 3}, rec.Quantity)
	assert.Equal(t, 6800, rec.Elapsed)

	var fin map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &fin))
	assert.Equal(t, "finish", fin["action"])
	assert.NotContains(t, fin, "workerType")
}

func TestNewFileSink_Errors(t *testing.T) {
	_, err := NewFileSink(filepath.Join(t.TempDir(), "log.txt"), FileFormat("xml"))
	assert.Error(t, err)

	_, err = NewFileSink(filepath.Join(t.TempDir(), "missing", "log.txt"), FormatText)
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.LogEvent(context.Background(), finishEvent()))
	assert.Equal(t, []string{"Finish!"}, m.Lines())
	assert.False(t, m.Closed())

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
	assert.ErrorIs(t, m.LogEvent(context.Background(), finishEvent()), ErrClosed)
	assert.Len(t, m.Events(), 1)
}

type brokenSink struct {
	err    error
	closed bool
}

func (b *brokenSink) LogEvent(context.Context, domain.Event) error { return b.err }

func (b *brokenSink) Close() error {
	b.closed = true
	return b.err
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	good := NewMemory()
	bad := &brokenSink{err: boom}
	m := NewMulti(bad, good)

	err := m.LogEvent(context.Background(), finishEvent())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, good.Events(), 1, "a failing sink does not stop the others")

	assert.ErrorIs(t, m.Close(), boom)
	assert.True(t, bad.closed)
	assert.True(t, good.Closed())

	assert.NoError(t, NewMulti().LogEvent(context.Background(), finishEvent()))
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewZapSink(zap.New(core))

	ctx := context.Background()
	require.NoError(t, s.LogEvent(ctx, partEvent(domain.ActionTimeout, "Timeout! Generating new load order.")))
	require.NoError(t, s.LogEvent(ctx, partEvent(domain.ActionWaiting, "Waiting for buffer space")))
	require.NoError(t, s.LogEvent(ctx, finishEvent()))
	require.NoError(t, s.Close())

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "plant", entries[0].LoggerName)
	assert.Equal(t, "Timeout! Generating new load order.", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "part", fields["workerType"])
	assert.EqualValues(t, 3, fields["workerId"])
	assert.EqualValues(t, 6800, fields["elapsed"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)

	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.NotContains(t, entries[2].ContextMap(), "workerType")
}

func TestToCloudEvent(t *testing.T) {
	ev := partEvent(domain.ActionTimeout, "Timeout! Generating new load order.")
	ce, err := ToCloudEvent(ev)
	require.NoError(t, err)
	require.NoError(t, ce.Validate())

	assert.Equal(t, "evt-1", ce.ID())
	assert.Equal(t, "com.plantfloor.worker.timeout", ce.Type())
	assert.Equal(t, EventSource, ce.Source())
	assert.Equal(t, "Part Worker 3", ce.Subject())
	assert.Equal(t, "run-1", ce.Extensions()["runid"])

	var rec record
	require.NoError(t, ce.DataAs(&rec))
	assert.Equal(t, "timeout", rec.Action)
	assert.Equal(t, 2, rec.Cycle)

	fin, err := ToCloudEvent(finishEvent())
	require.NoError(t, err)
	assert.Equal(t, "com.plantfloor.run.finish", fin.Type())
	assert.Empty(t, fin.Subject())
}
