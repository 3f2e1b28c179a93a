// v0
// internal/publish/publisher_test.go
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/metrics"
	"salesops/recovery/internal/recovery"
	"salesops/recovery/internal/report"
)

type recordingWriter struct {
	mu     sync.Mutex
	err    error
	msgs   chan kafka.Message
	closed bool
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{msgs: make(chan kafka.Message, 16)}
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	err := w.err
	w.mu.Unlock()
	for _, m := range msgs {
		w.msgs <- m
	}
	return err
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *recordingWriter) await(t *testing.T) kafka.Message {
	t.Helper()
	select {
	case m := <-w.msgs:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return kafka.Message{}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport() report.Report {
	e := recovery.NewEngine(dataset.Builtin(), recovery.TopK)
	return report.Build(e.Evaluate("APTS", nil), e.Dataset(), time.Now())
}

func TestPublisherDeliversEvent(t *testing.T) {
	w := newRecordingWriter()
	cfg := Config{Enabled: true, Topic: "recovery.exports", Brokers: []string{"kafka:9092"}}
	p, err := newWithWriter(cfg, discardLogger(), metrics.New(), w, w)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	rep := sampleReport()
	require.NoError(t, p.Publish(rep, "xlsx"))

	msg := w.await(t)
	assert.Equal(t, "APTS", string(msg.Key))
	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, EventTypeExportGenerated, ev.Type)
	assert.Equal(t, rep.ID, ev.ReportID)
	assert.Equal(t, "xlsx", ev.Format)
	assert.Equal(t, rep.Summary.GrandTotalTonnes, ev.GrandTotalTonnes)
	require.NotNil(t, ev.Highest)

	require.NoError(t, p.Stop(context.Background()))
	w.mu.Lock()
	assert.True(t, w.closed)
	w.mu.Unlock()
	assert.ErrorIs(t, p.Publish(rep, "json"), errNotStarted)
}

func TestPublisherWriteFailureDoesNotBlockPublish(t *testing.T) {
	w := newRecordingWriter()
	w.err = errors.New("broker down")
	p, err := newWithWriter(Config{Enabled: true, Topic: "t"}, discardLogger(), nil, w, nil)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	assert.NoError(t, p.Publish(sampleReport(), "json"))
	w.await(t)
	require.NoError(t, p.Stop(context.Background()))
}

func TestPublisherDisabledIsNoop(t *testing.T) {
	p, err := New(Config{}, discardLogger(), nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Start(context.Background()))
	assert.NoError(t, p.Publish(sampleReport(), "json"))
	assert.NoError(t, p.Stop(context.Background()))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Enabled: true, Brokers: []string{"k:9092"}}, discardLogger(), nil)
	assert.Error(t, err)
	_, err = New(Config{Enabled: true, Topic: "t"}, discardLogger(), nil)
	assert.Error(t, err)
	_, err = New(Config{}, nil, nil)
	assert.ErrorIs(t, err, errNilLogger)
	_, err = newWithWriter(Config{Enabled: true}, discardLogger(), nil, nil, nil)
	assert.ErrorIs(t, err, errNilWriter)
}
