package main

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

	"github.com/rl1809/plant-floor/internal/adapter/sink"
	"github.com/rl1809/plant-floor/internal/config"
	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/port"
)

type closeFailingSink struct {
	*sink.Memory
	err error
}

func (c closeFailingSink) Close() error {
	_ = c.Memory.Close()
	return c.err
}

func openerOf(s port.EventSink) sinkOpener {
	return func(context.Context) (port.EventSink, error) { return s, nil }
}

func TestOpenSinks_ClosesOpenedOnFailure(t *testing.T) {
	first, second := sink.NewMemory(), sink.NewMemory()
	openErr := errors.New("broker unreachable")
	closeErr := errors.New("flush failed")

	_, err := openSinks(context.Background(), zap.NewNop(), []sinkOpener{
		openerOf(first),
		openerOf(closeFailingSink{Memory: second, err: closeErr}),
		func(context.Context) (port.EventSink, error) { return nil, openErr },
	})

	require.ErrorIs(t, err, openErr)
	assert.ErrorIs(t, err, closeErr)
	assert.True(t, first.Closed())
	assert.True(t, second.Closed())
}

func TestOpenSinks_FansOut(t *testing.T) {
	a, b := sink.NewMemory(), sink.NewMemory()
	s, err := openSinks(context.Background(), zap.NewNop(), []sinkOpener{openerOf(a), openerOf(b)})
	require.NoError(t, err)

	require.NoError(t, s.LogEvent(context.Background(), domain.Event{Action: domain.ActionFinish, Message: "Finish!"}))
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"Finish!"}, a.Lines())
	assert.Equal(t, []string{"Finish!"}, b.Lines())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestNewSinkFactory_FileThenUnreachableRedis(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	path := filepath.Join(t.TempDir(), "log.txt")

	factory := newSinkFactory(config.SinksConfig{
		File:  config.FileSinkConfig{Enabled: true, Path: path, Format: "text"},
		Redis: config.RedisSinkConfig{Enabled: true, Addr: "127.0.0.1:1"},
	}, zap.New(core))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := factory(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to connect redis"), err.Error())

	// the file sink was opened first and then closed again
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	entries := logs.FilterMessage("Closing event sinks opened before the failure").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["opened"])
}
