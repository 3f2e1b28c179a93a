// v0
// internal/circuitbreaker/kafka.go
package circuitbreaker

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of kafka.Writer the wrappers depend on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaWriter runs every write of the inner writer through a breaker.
type KafkaWriter struct {
	inner MessageWriter
	brk   *Breaker
}

// NewKafkaWriter wraps inner; a nil breaker leaves writes unguarded.
func NewKafkaWriter(inner MessageWriter, brk *Breaker) *KafkaWriter {
	return &KafkaWriter{inner: inner, brk: brk}
}

// WriteMessages implements MessageWriter.
func (w *KafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.brk == nil {
		return w.inner.WriteMessages(ctx, msgs...)
	}
	return w.brk.Execute(ctx, func(ctx context.Context) error {
		return w.inner.WriteMessages(ctx, msgs...)
	})
}
