// v0
// internal/publish/publisher.go
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"salesops/recovery/internal/circuitbreaker"
	"salesops/recovery/internal/metrics"
	"salesops/recovery/internal/report"
)

// EventTypeExportGenerated tags every message on the export topic.
const EventTypeExportGenerated = "recovery.export.generated"

// Config controls the optional export announcement stream.
type Config struct {
	Enabled bool
	Topic   string
	Brokers []string
	Breaker circuitbreaker.Config
}

// Event is the message value written for every rendered export. It carries
// the summary only; the full report stays with the caller.
type Event struct {
	Type             string              `json:"type"`
	ReportID         string              `json:"reportId"`
	Region           string              `json:"region"`
	Format           string              `json:"format"`
	Timestamp        string              `json:"timestamp"`
	GrandTotalTonnes float64             `json:"grandTotalTonnes"`
	TotalLost        int                 `json:"totalLost"`
	Highest          *report.HighestLoss `json:"highestLossCategory"`
}

type writeCloser interface {
	Close() error
}

// Publisher asynchronously writes export events to Kafka. Rendering never
// waits for the broker: Publish only enqueues, and a full queue drops the
// event.
type Publisher struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
	writer  circuitbreaker.MessageWriter
	closer  writeCloser
	enabled bool
	queue   chan Event

	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

const (
	queueSize   = 128
	breakerName = "recovery-export-writer"
)

var (
	errNilLogger        = errors.New("publisher requires a logger")
	errNilWriter        = errors.New("publisher requires a writer")
	errNotStarted       = errors.New("export publisher not started")
	errPublisherStopped = errors.New("export publisher stopped")
	// ErrQueueFull is returned when the broker cannot keep up.
	ErrQueueFull = errors.New("export publisher queue full")
)

// New builds a publisher backed by a breaker-guarded kafka.Writer. A disabled
// config yields a no-op publisher.
func New(cfg Config, log *slog.Logger, m *metrics.Metrics) (*Publisher, error) {
	if log == nil {
		return nil, errNilLogger
	}
	if !cfg.Enabled {
		log.Info("export_publisher_disabled")
		return &Publisher{cfg: cfg, log: log}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("export topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	base := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	brk := circuitbreaker.New(breakerName, cfg.Breaker, log, nil)
	brk.OnStateChange(func(name string, s circuitbreaker.State) {
		m.SetBreakerState(name, float64(s))
	})
	m.SetBreakerState(breakerName, float64(circuitbreaker.Closed))
	return newWithWriter(cfg, log, m, circuitbreaker.NewKafkaWriter(base, brk), base)
}

func newWithWriter(cfg Config, log *slog.Logger, m *metrics.Metrics, w circuitbreaker.MessageWriter, closer writeCloser) (*Publisher, error) {
	if log == nil {
		return nil, errNilLogger
	}
	if w == nil {
		return nil, errNilWriter
	}
	p := &Publisher{
		cfg:     cfg,
		log:     log.With(slog.String("component", "export_publisher")),
		metrics: m,
		writer:  w,
		closer:  closer,
		enabled: cfg.Enabled,
	}
	if p.enabled {
		p.queue = make(chan Event, queueSize)
	}
	return p, nil
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

// Start launches the delivery loop.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info("export_publisher_started", slog.String("topic", p.cfg.Topic))
	})
	return nil
}

// Stop cancels the loop, drains what is queued and closes the writer.
func (p *Publisher) Stop(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	var stopErr error
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if p.closer != nil {
			if err := p.closer.Close(); err != nil {
				p.log.Error("export_publisher_close_err", slog.Any("err", err))
			}
		}
		p.log.Info("export_publisher_stopped")
	})
	return stopErr
}

// Publish enqueues the announcement of a rendered export.
func (p *Publisher) Publish(rep report.Report, format string) error {
	if !p.Enabled() {
		return nil
	}
	if !p.started.Load() {
		return errNotStarted
	}
	ev := Event{
		Type:             EventTypeExportGenerated,
		ReportID:         rep.ID,
		Region:           rep.Region,
		Format:           format,
		Timestamp:        rep.Timestamp,
		GrandTotalTonnes: rep.Summary.GrandTotalTonnes,
		TotalLost:        rep.Summary.TotalLost,
		Highest:          rep.Summary.HighestLossCategory,
	}
	select {
	case <-p.runCtx.Done():
		return errPublisherStopped
	default:
	}
	select {
	case p.queue <- ev:
		p.log.Debug("export_publish_enqueued", slog.String("report", ev.ReportID))
		return nil
	default:
		p.metrics.IncExportPublish("dropped")
		p.log.Warn("export_publish_dropped", slog.String("report", ev.ReportID))
		return ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			p.started.Store(false)
			return
		case ev := <-p.queue:
			p.deliver(ev)
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ev)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.metrics.IncExportPublish("fail")
		p.log.Error("export_publish_encode_err", slog.Any("err", err))
		return
	}
	// The run context is already cancelled while draining.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.runCtx), 5*time.Second)
	defer cancel()
	msg := kafka.Message{Key: []byte(ev.Region), Value: value, Time: time.Now().UTC()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.IncExportPublish("fail")
		p.log.Error("export_publish_err", slog.Any("err", err), slog.String("report", ev.ReportID))
		return
	}
	p.metrics.IncExportPublish("ok")
	p.log.Info("export_published", slog.String("report", ev.ReportID), slog.String("region", ev.Region))
}
